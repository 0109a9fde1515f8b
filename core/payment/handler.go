package payment

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/core/claims"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
)

// HandleList returns the caller's payment history, newest first.
func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		payments, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, payments, http.StatusOK)
	}
}

// HandleShow returns a single payment to its owner or an admin.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		pay, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsUser(ctx, pay.UserID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("not the owner of the payment"))
		}

		return web.Respond(ctx, w, pay, http.StatusOK)
	}
}
