package cart

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/core/claims"
	"github.com/gulitdev/gulit-api/core/product"
	"github.com/gulitdev/gulit-api/database"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		crt, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// An empty cart, not an error.
				return web.Respond(ctx, w, Cart{Items: []Item{}}, http.StatusOK)
			}
			return err
		}

		items, err := FetchItems(ctx, db, clm.UserID)
		if err != nil {
			return err
		}
		crt.Items = items

		return web.Respond(ctx, w, crt, http.StatusOK)
	}
}

func HandleCreateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := product.Fetch(ctx, db, in.ProductID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		now := time.Now().UTC()
		item := Item{
			UserID:    clm.UserID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			CreatedAt: now,
			UpdatedAt: now,
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			crt := Cart{UserID: clm.UserID, CreatedAt: now, UpdatedAt: now}
			if err := Upsert(ctx, tx, crt); err != nil {
				return err
			}
			return UpsertItem(ctx, tx, item)
		})
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, item, http.StatusOK)
	}
}

func HandleDeleteItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		productID := web.Param(r, "product_id")
		if err := validate.CheckID(productID); err != nil {
			return weberr.BadRequest(err)
		}

		if err := DeleteItem(ctx, db, clm.UserID, productID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if err := Delete(ctx, db, clm.UserID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
