package order

import (
	"context"
	"fmt"
	"time"

	"github.com/gulitdev/gulit-api/core/product"
	"github.com/gulitdev/gulit-api/database"
	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, ord Order) error {
	const q = `
	INSERT INTO orders (order_id, user_id, product_id, quantity, total_amount, order_status, receive_status,
		provider, tx_ref, customer_email, customer_phone, shipping_address, receiver_phone, notes, created_at, updated_at)
	VALUES (:order_id, :user_id, :product_id, :quantity, :total_amount, :order_status, :receive_status,
		:provider, :tx_ref, :customer_email, :customer_phone, :shipping_address, :receiver_phone, :notes, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ord); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, id string) (Order, error) {
	const q = `SELECT * FROM orders WHERE order_id = $1`

	var ord Order
	if err := db.GetContext(ctx, &ord, q, id); err != nil {
		return Order{}, fmt.Errorf("fetching order[%s]: %w", id, err)
	}

	return ord, nil
}

func FetchByTxRef(ctx context.Context, db *sqlx.DB, txRef string) (Order, error) {
	const q = `SELECT * FROM orders WHERE tx_ref = $1`

	var ord Order
	if err := db.GetContext(ctx, &ord, q, txRef); err != nil {
		return Order{}, fmt.Errorf("fetching order bound to payment[%s]: %w", txRef, err)
	}

	return ord, nil
}

func FetchByUser(ctx context.Context, db *sqlx.DB, userID string) ([]Order, error) {
	const q = `SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	orders := []Order{}
	if err := db.SelectContext(ctx, &orders, q, userID); err != nil {
		return nil, fmt.Errorf("fetching orders of user[%s]: %w", userID, err)
	}

	return orders, nil
}

func FetchAll(ctx context.Context, db *sqlx.DB) ([]Order, error) {
	const q = `SELECT * FROM orders ORDER BY created_at DESC`

	orders := []Order{}
	if err := db.SelectContext(ctx, &orders, q); err != nil {
		return nil, fmt.Errorf("fetching orders: %w", err)
	}

	return orders, nil
}

// MarkPaid transitions a pending order to paid. The WHERE guard makes
// concurrent or repeated confirmations settle on a single transition: the
// returned bool tells the caller whether this call won the transition.
func MarkPaid(ctx context.Context, db sqlx.ExtContext, id string) (bool, error) {
	const q = `
	UPDATE orders SET order_status = 'paid', updated_at = $2
	WHERE order_id = $1 AND order_status = 'pending'`

	res, err := db.ExecContext(ctx, q, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("marking order[%s] paid: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("counting paid transition rows: %w", err)
	}

	return n > 0, nil
}

// SetReceiveStatus moves the fulfillment acknowledgment state. The
// transition must already be validated with the Can* guards; the WHERE
// clause re-checks the order left the pending state so a race cannot
// bypass it. Expired orders pass the guard because a late-settled
// payment queues them for a refund.
func SetReceiveStatus(ctx context.Context, db sqlx.ExtContext, id string, rs ReceiveStatus) error {
	const q = `
	UPDATE orders SET receive_status = $2, updated_at = $3
	WHERE order_id = $1 AND order_status IN ('paid', 'expired')`

	res, err := db.ExecContext(ctx, q, id, rs, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("setting receive status of order[%s]: %w", id, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotPaid
	}

	return nil
}

// Expire compensates an order whose gateway call failed after the local
// rows were committed, so it does not linger as pending.
func Expire(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `
	UPDATE orders SET order_status = 'expired', updated_at = $2
	WHERE order_id = $1 AND order_status = 'pending'`

	if _, err := db.ExecContext(ctx, q, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("expiring order[%s]: %w", id, err)
	}

	return nil
}

// FlagRefund queues an expired order whose payment settled after the
// sweep for a back-office refund.
func FlagRefund(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `
	UPDATE orders SET receive_status = 'refunding', updated_at = $2
	WHERE order_id = $1 AND order_status = 'expired' AND receive_status = 'not_received'`

	if _, err := db.ExecContext(ctx, q, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("flagging order[%s] for refund: %w", id, err)
	}

	return nil
}

// ExpireStale sweeps pending orders older than the TTL to expired,
// returning their held stock, and reports how many were swept.
func ExpireStale(ctx context.Context, db *sqlx.DB, olderThan time.Time) (int64, error) {
	var swept int64

	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		const q = `
		UPDATE orders SET order_status = 'expired', updated_at = $2
		WHERE order_status = 'pending' AND created_at < $1
		RETURNING product_id, quantity`

		rows, err := tx.QueryxContext(ctx, q, olderThan, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("sweeping stale orders: %w", err)
		}
		defer rows.Close()

		held := map[string]int{}
		for rows.Next() {
			var productID string
			var quantity int
			if err := rows.Scan(&productID, &quantity); err != nil {
				return fmt.Errorf("scanning swept order: %w", err)
			}
			held[productID] += quantity
			swept++
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("sweeping stale orders: %w", err)
		}

		for productID, quantity := range held {
			if err := product.RestoreStock(ctx, tx, productID, quantity); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return 0, err
	}
	return swept, nil
}
