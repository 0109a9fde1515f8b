package database

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gulitdev/gulit-api/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Open(cfg config.DB) (*sqlx.DB, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Pass),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}

	return sqlx.Connect("postgres", u.String())
}

// StatusCheck makes a round trip to the database to validate the connection.
func StatusCheck(ctx context.Context, db *sqlx.DB) error {
	const q = `SELECT true`
	var tmp bool
	return db.QueryRowContext(ctx, q).Scan(&tmp)
}

// Transaction runs fn inside a database transaction, rolling back when fn
// returns an error and committing otherwise.
func Transaction(db *sqlx.DB, fn func(sqlx.ExtContext) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if errTx := tx.Rollback(); errTx != nil {
			return fmt.Errorf("rolling back transaction: %v (original error: %w)", errTx, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
