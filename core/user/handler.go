package user

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/core/claims"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShowCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		usr, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		usr, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var uu UserUp
		if err := web.Decode(w, r, &uu); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(uu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := Fetch(ctx, db, clm.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if uu.Name != nil {
			usr.Name = *uu.Name
		}
		if uu.AvatarURL != nil {
			usr.AvatarURL = *uu.AvatarURL
		}
		usr.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, usr); err != nil {
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleFollow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if id == clm.UserID {
			err := errors.New("users cannot follow themselves")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := Fetch(ctx, db, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		fl := Follow{
			FollowerID: clm.UserID,
			FollowedID: id,
			CreatedAt:  time.Now().UTC(),
		}

		if err := CreateFollow(ctx, db, fl); err != nil {
			return err
		}

		return web.Respond(ctx, w, fl, http.StatusCreated)
	}
}

func HandleUnfollow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if err := DeleteFollow(ctx, db, clm.UserID, id); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleListFollowers(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		users, err := FetchFollowers(ctx, db, id)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, users, http.StatusOK)
	}
}

func HandleListFollowing(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		users, err := FetchFollowing(ctx, db, id)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, users, http.StatusOK)
	}
}
