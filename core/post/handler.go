package post

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

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var pn PostNew
		if err := web.Decode(w, r, &pn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(pn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		pst := Post{
			ID:        validate.GenerateID(),
			AuthorID:  clm.UserID,
			Body:      pn.Body,
			ImageURL:  pn.ImageURL,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, pst); err != nil {
			return err
		}

		return web.Respond(ctx, w, pst, http.StatusCreated)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		author := r.URL.Query().Get("author")
		if author != "" {
			if err := validate.CheckID(author); err != nil {
				return weberr.BadRequest(err)
			}
		}

		page, err := web.QueryInt(r, "page", 1, 1, 1<<30)
		if err != nil {
			return weberr.BadRequest(err)
		}
		pageSize, err := web.QueryInt(r, "pageSize", 20, 1, 100)
		if err != nil {
			return weberr.BadRequest(err)
		}

		posts, err := FetchAll(ctx, db, author, page, pageSize)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, posts, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		pst, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, pst, http.StatusOK)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var pu PostUp
		if err := web.Decode(w, r, &pu); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(pu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		pst, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsUser(ctx, pst.AuthorID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("not the author of the post"))
		}

		if pu.Body != nil {
			pst.Body = *pu.Body
		}
		if pu.ImageURL != nil {
			pst.ImageURL = *pu.ImageURL
		}
		pst.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, pst); err != nil {
			return err
		}

		return web.Respond(ctx, w, pst, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		pst, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsUser(ctx, pst.AuthorID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("not the author of the post"))
		}

		if err := Delete(ctx, db, id); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleCreateComment(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var cn CommentNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := Fetch(ctx, db, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		now := time.Now().UTC()
		cm := Comment{
			ID:        validate.GenerateID(),
			PostID:    id,
			AuthorID:  clm.UserID,
			Body:      cn.Body,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := CreateComment(ctx, db, cm); err != nil {
			return err
		}

		return web.Respond(ctx, w, cm, http.StatusCreated)
	}
}

func HandleListComments(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		comments, err := FetchComments(ctx, db, id)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, comments, http.StatusOK)
	}
}

func HandleDeleteComment(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "comment_id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		cm, err := FetchComment(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.IsUser(ctx, cm.AuthorID) && !claims.IsAdmin(ctx) {
			return weberr.Forbidden(errors.New("not the author of the comment"))
		}

		if err := DeleteComment(ctx, db, id); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleLike(db *sqlx.DB) web.Handler {
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

		lk := Like{
			PostID:    id,
			UserID:    clm.UserID,
			CreatedAt: time.Now().UTC(),
		}

		if err := CreateLike(ctx, db, lk); err != nil {
			return err
		}

		return web.Respond(ctx, w, lk, http.StatusCreated)
	}
}

func HandleUnlike(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if err := DeleteLike(ctx, db, id, clm.UserID); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
