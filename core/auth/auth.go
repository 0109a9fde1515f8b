package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/core/claims"
)

const (
	userIDKey = "user_id"
	roleKey   = "user_role"
)

// LoadAndSave adapts the scs session middleware to the web.Handler chain and
// copies the session identity into the request claims.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			sh := session.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := r.Context()

				if id := session.GetString(ctx, userIDKey); id != "" {
					clm := claims.Claims{
						UserID: id,
						Role:   session.GetString(ctx, roleKey),
					}
					ctx = claims.Set(ctx, clm)
				}

				err = handler(ctx, w, r)
			}))

			sh.ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

// Authenticate rejects requests without a logged-in session.
func Authenticate() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Admin allows only the admin role through.
func Admin() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			if !claims.IsAdmin(ctx) {
				return weberr.Forbidden(errors.New("admin role required"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Staff allows the seller, admin and manager roles through. This is the flat
// role gate used for listing management and refund resolution.
func Staff() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if _, err := claims.Get(ctx); err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			if !claims.IsStaff(ctx) {
				return weberr.Forbidden(errors.New("seller, admin or manager role required"))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func login(ctx context.Context, session *scs.SessionManager, userID string, role string) error {
	// Renew the token on privilege change to prevent session fixation.
	if err := session.RenewToken(ctx); err != nil {
		return err
	}

	session.Put(ctx, userIDKey, userID)
	session.Put(ctx, roleKey, role)
	return nil
}
