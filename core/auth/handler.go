package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/core/claims"
	"github.com/gulitdev/gulit-api/core/user"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const uniqueViolation = "23505"

func HandleSignup(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un user.UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(un); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(un.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		role := un.Role
		if role == "" {
			role = claims.RoleBuyer
		}

		now := time.Now().UTC()
		usr := user.User{
			ID:           validate.GenerateID(),
			Name:         un.Name,
			Email:        un.Email,
			Role:         role,
			PasswordHash: hash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := user.Create(ctx, db, usr); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return weberr.NewError(err, "email already registered", http.StatusConflict)
			}
			return err
		}

		if err := login(ctx, session, usr.ID, usr.Role); err != nil {
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var creds struct {
			Email    string `json:"email" validate:"required,email"`
			Password string `json:"password" validate:"required"`
		}

		if err := web.Decode(w, r, &creds); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(creds); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := user.FetchByEmail(ctx, db, creds.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotAuthorized(errors.New("invalid credentials"))
			}
			return err
		}

		if err := bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(creds.Password)); err != nil {
			return weberr.NotAuthorized(errors.New("invalid credentials"))
		}

		if err := login(ctx, session, usr.ID, usr.Role); err != nil {
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(ctx); err != nil {
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
