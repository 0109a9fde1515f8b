package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrInsufficientStock reports a stock take larger than the remaining
// quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

func Create(ctx context.Context, db sqlx.ExtContext, prd Product) error {
	const q = `
	INSERT INTO products (product_id, seller_id, name, description, category, price, quantity, image_url, created_at, updated_at)
	VALUES (:product_id, :seller_id, :name, :description, :category, :price, :quantity, :image_url, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prd); err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, id string) (Product, error) {
	const q = `SELECT * FROM products WHERE product_id = $1`

	var prd Product
	if err := db.GetContext(ctx, &prd, q, id); err != nil {
		return Product{}, fmt.Errorf("fetching product[%s]: %w", id, err)
	}

	return prd, nil
}

// sortColumns whitelists the single sort column listings support.
var sortColumns = map[string]string{
	"":       "created_at DESC",
	"newest": "created_at DESC",
	"oldest": "created_at ASC",
	"price":  "price ASC",
	"name":   "name ASC",
}

func FetchAll(ctx context.Context, db *sqlx.DB, f Filter) ([]Product, error) {
	order, ok := sortColumns[f.Sort]
	if !ok {
		return nil, fmt.Errorf("unknown sort column %q", f.Sort)
	}

	q := strings.Builder{}
	q.WriteString(`SELECT * FROM products WHERE 1=1`)

	args := map[string]interface{}{
		"limit":  f.PageSize,
		"offset": (f.Page - 1) * f.PageSize,
	}

	if f.Search != "" {
		q.WriteString(` AND (name ILIKE :search OR category ILIKE :search)`)
		args["search"] = "%" + f.Search + "%"
	}
	if f.Category != "" {
		q.WriteString(` AND category = :category`)
		args["category"] = f.Category
	}

	q.WriteString(` ORDER BY ` + order)
	q.WriteString(` LIMIT :limit OFFSET :offset`)

	rows, err := sqlx.NamedQueryContext(ctx, db, q.String(), args)
	if err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		var prd Product
		if err := rows.StructScan(&prd); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, prd)
	}

	return products, rows.Err()
}

func FetchBySeller(ctx context.Context, db *sqlx.DB, sellerID string) ([]Product, error) {
	const q = `SELECT * FROM products WHERE seller_id = $1 ORDER BY created_at DESC`

	products := []Product{}
	if err := db.SelectContext(ctx, &products, q, sellerID); err != nil {
		return nil, fmt.Errorf("fetching products of seller[%s]: %w", sellerID, err)
	}

	return products, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, prd Product) error {
	const q = `
	UPDATE products SET
		name        = :name,
		description = :description,
		category    = :category,
		price       = :price,
		quantity    = :quantity,
		image_url   = :image_url,
		updated_at  = :updated_at,
		version     = version + 1
	WHERE product_id = :product_id AND version = :version`

	if _, err := sqlx.NamedExecContext(ctx, db, q, prd); err != nil {
		return fmt.Errorf("updating product[%s]: %w", prd.ID, err)
	}

	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM products WHERE product_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting product[%s]: %w", id, err)
	}

	return nil
}

// DecrementStock takes units off the stock, failing with
// ErrInsufficientStock when fewer remain.
func DecrementStock(ctx context.Context, db sqlx.ExtContext, id string, n int) error {
	const q = `
	UPDATE products SET quantity = quantity - $2, version = version + 1
	WHERE product_id = $1 AND quantity >= $2`

	res, err := db.ExecContext(ctx, q, id, n)
	if err != nil {
		return fmt.Errorf("decrementing stock of product[%s]: %w", id, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("product[%s]: %w", id, ErrInsufficientStock)
	}

	return nil
}

// RestoreStock returns units held by an abandoned or compensated order
// back to the stock.
func RestoreStock(ctx context.Context, db sqlx.ExtContext, id string, n int) error {
	const q = `
	UPDATE products SET quantity = quantity + $2, version = version + 1
	WHERE product_id = $1`

	if _, err := db.ExecContext(ctx, q, id, n); err != nil {
		return fmt.Errorf("restoring stock of product[%s]: %w", id, err)
	}

	return nil
}

func UpsertRating(ctx context.Context, db sqlx.ExtContext, rt Rating) error {
	const q = `
	INSERT INTO ratings (product_id, user_id, value, review, created_at, updated_at)
	VALUES (:product_id, :user_id, :value, :review, :created_at, :updated_at)
	ON CONFLICT (product_id, user_id) DO UPDATE SET
		value      = EXCLUDED.value,
		review     = EXCLUDED.review,
		updated_at = EXCLUDED.updated_at`

	if _, err := sqlx.NamedExecContext(ctx, db, q, rt); err != nil {
		return fmt.Errorf("upserting rating: %w", err)
	}

	return nil
}

func FetchRatings(ctx context.Context, db *sqlx.DB, productID string) ([]Rating, error) {
	const q = `SELECT * FROM ratings WHERE product_id = $1 ORDER BY created_at DESC`

	ratings := []Rating{}
	if err := db.SelectContext(ctx, &ratings, q, productID); err != nil {
		return nil, fmt.Errorf("fetching ratings of product[%s]: %w", productID, err)
	}

	return ratings, nil
}

func FetchRatingAverage(ctx context.Context, db *sqlx.DB, productID string) (float64, error) {
	const q = `SELECT COALESCE(AVG(value), 0) FROM ratings WHERE product_id = $1`

	var avg float64
	if err := db.GetContext(ctx, &avg, q, productID); err != nil {
		return 0, fmt.Errorf("averaging ratings of product[%s]: %w", productID, err)
	}

	return avg, nil
}

func CreateFavorite(ctx context.Context, db sqlx.ExtContext, fav Favorite) error {
	const q = `
	INSERT INTO favorites (product_id, user_id, created_at)
	VALUES (:product_id, :user_id, :created_at)
	ON CONFLICT DO NOTHING`

	if _, err := sqlx.NamedExecContext(ctx, db, q, fav); err != nil {
		return fmt.Errorf("inserting favorite: %w", err)
	}

	return nil
}

func DeleteFavorite(ctx context.Context, db sqlx.ExtContext, productID string, userID string) error {
	const q = `DELETE FROM favorites WHERE product_id = $1 AND user_id = $2`

	if _, err := db.ExecContext(ctx, q, productID, userID); err != nil {
		return fmt.Errorf("deleting favorite: %w", err)
	}

	return nil
}

func FetchFavorites(ctx context.Context, db *sqlx.DB, userID string) ([]Product, error) {
	const q = `
	SELECT p.* FROM products p
	JOIN favorites f ON f.product_id = p.product_id
	WHERE f.user_id = $1
	ORDER BY f.created_at DESC`

	products := []Product{}
	if err := db.SelectContext(ctx, &products, q, userID); err != nil {
		return nil, fmt.Errorf("fetching favorites of user[%s]: %w", userID, err)
	}

	return products, nil
}
