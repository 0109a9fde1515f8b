package cart

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Fetch(ctx context.Context, db *sqlx.DB, userID string) (Cart, error) {
	const q = `SELECT * FROM carts WHERE user_id = $1`

	var crt Cart
	if err := db.GetContext(ctx, &crt, q, userID); err != nil {
		return Cart{}, fmt.Errorf("fetching cart of user[%s]: %w", userID, err)
	}

	return crt, nil
}

func FetchItems(ctx context.Context, db *sqlx.DB, userID string) ([]Item, error) {
	const q = `SELECT * FROM cart_items WHERE user_id = $1 ORDER BY created_at`

	items := []Item{}
	if err := db.SelectContext(ctx, &items, q, userID); err != nil {
		return nil, fmt.Errorf("fetching cart items of user[%s]: %w", userID, err)
	}

	return items, nil
}

// Upsert makes sure a cart row exists and bumps its version.
func Upsert(ctx context.Context, db sqlx.ExtContext, crt Cart) error {
	const q = `
	INSERT INTO carts (user_id, created_at, updated_at)
	VALUES (:user_id, :created_at, :updated_at)
	ON CONFLICT (user_id) DO UPDATE SET
		updated_at = EXCLUDED.updated_at,
		version    = carts.version + 1`

	if _, err := sqlx.NamedExecContext(ctx, db, q, crt); err != nil {
		return fmt.Errorf("upserting cart: %w", err)
	}

	return nil
}

func UpsertItem(ctx context.Context, db sqlx.ExtContext, item Item) error {
	const q = `
	INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
	VALUES (:user_id, :product_id, :quantity, :created_at, :updated_at)
	ON CONFLICT (user_id, product_id) DO UPDATE SET
		quantity   = EXCLUDED.quantity,
		updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, item); err != nil {
		return fmt.Errorf("upserting cart item: %w", err)
	}

	return nil
}

func DeleteItem(ctx context.Context, db sqlx.ExtContext, userID string, productID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	if _, err := db.ExecContext(ctx, q, userID, productID); err != nil {
		return fmt.Errorf("deleting cart item: %w", err)
	}

	return nil
}

// Delete flushes all items of the user's cart.
func Delete(ctx context.Context, db sqlx.ExtContext, userID string) error {
	const q = `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("flushing cart of user[%s]: %w", userID, err)
	}

	return nil
}
