package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, pay Payment) error {
	const q = `
	INSERT INTO payments (payment_id, order_id, user_id, amount, method, status, transaction_id, raw_response, payment_date, created_at, updated_at)
	VALUES (:payment_id, :order_id, :user_id, :amount, :method, :status, :transaction_id, :raw_response, :payment_date, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, pay); err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db *sqlx.DB, id string) (Payment, error) {
	const q = `SELECT * FROM payments WHERE payment_id = $1`

	var pay Payment
	if err := db.GetContext(ctx, &pay, q, id); err != nil {
		return Payment{}, fmt.Errorf("fetching payment[%s]: %w", id, err)
	}

	return pay, nil
}

// FetchByOrder returns the payment bound to an order. The unique index
// on order_id guarantees at most one row.
func FetchByOrder(ctx context.Context, db *sqlx.DB, orderID string) (Payment, error) {
	const q = `SELECT * FROM payments WHERE order_id = $1`

	var pay Payment
	if err := db.GetContext(ctx, &pay, q, orderID); err != nil {
		return Payment{}, fmt.Errorf("fetching payment of order[%s]: %w", orderID, err)
	}

	return pay, nil
}

func FetchByUser(ctx context.Context, db *sqlx.DB, userID string) ([]Payment, error) {
	const q = `SELECT * FROM payments WHERE user_id = $1 ORDER BY created_at DESC`

	payments := []Payment{}
	if err := db.SelectContext(ctx, &payments, q, userID); err != nil {
		return nil, fmt.Errorf("fetching payments of user[%s]: %w", userID, err)
	}

	return payments, nil
}

// SetRaw stores the gateway response body for diagnostics.
func SetRaw(ctx context.Context, db sqlx.ExtContext, id string, raw []byte) error {
	const q = `UPDATE payments SET raw_response = $2, updated_at = $3 WHERE payment_id = $1`

	if _, err := db.ExecContext(ctx, q, id, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("storing raw response on payment[%s]: %w", id, err)
	}

	return nil
}

// Complete marks the payment settled with the gateway's transaction id.
func Complete(ctx context.Context, db sqlx.ExtContext, orderID string, transactionID string, at time.Time) error {
	const q = `
	UPDATE payments SET
		status         = 'completed',
		transaction_id = $2,
		payment_date   = $3,
		updated_at     = $3
	WHERE order_id = $1 AND status <> 'completed'`

	if _, err := db.ExecContext(ctx, q, orderID, transactionID, at); err != nil {
		return fmt.Errorf("completing payment of order[%s]: %w", orderID, err)
	}

	return nil
}

// Fail marks the payment failed, keeping whatever diagnostic was stored.
func Fail(ctx context.Context, db sqlx.ExtContext, orderID string) error {
	const q = `
	UPDATE payments SET status = 'failed', updated_at = $2
	WHERE order_id = $1 AND status = 'initiated'`

	if _, err := db.ExecContext(ctx, q, orderID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failing payment of order[%s]: %w", orderID, err)
	}

	return nil
}
