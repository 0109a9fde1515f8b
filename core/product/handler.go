package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/core/claims"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		f, err := parseFilter(r)
		if err != nil {
			return weberr.BadRequest(err)
		}

		products, err := FetchAll(ctx, db, f)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, products, http.StatusOK)
	}
}

func parseFilter(r *http.Request) (Filter, error) {
	f := Filter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
		Sort:     r.URL.Query().Get("sort"),
	}

	if _, ok := sortColumns[f.Sort]; !ok {
		return Filter{}, fmt.Errorf("unknown sort column %q", f.Sort)
	}

	var err error
	if f.Page, err = web.QueryInt(r, "page", 1, 1, 1<<30); err != nil {
		return Filter{}, err
	}
	if f.PageSize, err = web.QueryInt(r, "pageSize", 20, 1, 100); err != nil {
		return Filter{}, err
	}

	return f, nil
}

// HandleListMine returns the caller's own listings, newest first.
func HandleListMine(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		products, err := FetchBySeller(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, products, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		prd, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, prd, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var pn ProductNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(pn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		prd := Product{
			ID:          validate.GenerateID(),
			SellerID:    clm.UserID,
			Name:        pn.Name,
			Description: pn.Description,
			Category:    pn.Category,
			Price:       pn.Price,
			Quantity:    pn.Quantity,
			ImageURL:    pn.ImageURL,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, prd); err != nil {
			return err
		}

		return web.Respond(ctx, w, prd, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var pu ProductUp
		if err := web.Decode(w, r, &pu); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(pu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		prd, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !canManage(ctx, prd) {
			return weberr.Forbidden(errors.New("not the owner of the listing"))
		}

		if pu.Name != nil {
			prd.Name = *pu.Name
		}
		if pu.Description != nil {
			prd.Description = *pu.Description
		}
		if pu.Category != nil {
			prd.Category = *pu.Category
		}
		if pu.Price != nil {
			prd.Price = *pu.Price
		}
		if pu.Quantity != nil {
			prd.Quantity = *pu.Quantity
		}
		if pu.ImageURL != nil {
			prd.ImageURL = *pu.ImageURL
		}
		prd.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, prd); err != nil {
			return err
		}

		return web.Respond(ctx, w, prd, http.StatusOK)
	}
}

// canManage reports whether the caller may mutate a listing: its seller,
// or the admin and manager back-office roles. Every mutating endpoint
// applies this same rule.
func canManage(ctx context.Context, prd Product) bool {
	if claims.IsUser(ctx, prd.SellerID) || claims.IsAdmin(ctx) {
		return true
	}

	clm, err := claims.Get(ctx)
	return err == nil && clm.Role == claims.RoleManager
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		prd, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !canManage(ctx, prd) {
			return weberr.Forbidden(errors.New("not the owner of the listing"))
		}

		if err := Delete(ctx, db, id); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleUpsertRating(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var rn RatingNew
		if err := web.Decode(w, r, &rn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(rn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := Fetch(ctx, db, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		now := time.Now().UTC()
		rt := Rating{
			ProductID: id,
			UserID:    clm.UserID,
			Value:     rn.Value,
			Review:    rn.Review,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := UpsertRating(ctx, db, rt); err != nil {
			return err
		}

		return web.Respond(ctx, w, rt, http.StatusOK)
	}
}

func HandleListRatings(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ratings, err := FetchRatings(ctx, db, id)
		if err != nil {
			return err
		}

		avg, err := FetchRatingAverage(ctx, db, id)
		if err != nil {
			return err
		}

		out := struct {
			Average float64  `json:"average"`
			Ratings []Rating `json:"ratings"`
		}{
			Average: avg,
			Ratings: ratings,
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

func HandleCreateFavorite(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := Fetch(ctx, db, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		fav := Favorite{
			ProductID: id,
			UserID:    clm.UserID,
			CreatedAt: time.Now().UTC(),
		}

		if err := CreateFavorite(ctx, db, fav); err != nil {
			return err
		}

		return web.Respond(ctx, w, fav, http.StatusCreated)
	}
}

func HandleDeleteFavorite(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if err := DeleteFavorite(ctx, db, id, clm.UserID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleListFavorites(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		products, err := FetchFavorites(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, products, http.StatusOK)
	}
}
