package product

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gulitdev/gulit-api/api/background"
	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/upload"
	"github.com/gulitdev/gulit-api/validate"
	"github.com/jmoiron/sqlx"
)

// HandleUploadImage accepts a multipart form with an "image" field, stores
// the file and binds its URL to the listing. The replaced file, if any, is
// removed off the request path.
func HandleUploadImage(db *sqlx.DB, store *upload.Store, bg *background.Background) web.Handler {
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

		if err := r.ParseMultipartForm(store.MaxSize); err != nil {
			return weberr.BadRequest(err)
		}

		_, fh, err := r.FormFile("image")
		if err != nil {
			return weberr.BadRequest(errors.New("missing image field"))
		}

		name, err := store.Save(fh)
		if err != nil {
			return weberr.BadRequest(err)
		}

		old := prd.ImageURL
		prd.ImageURL = "/uploads/" + name
		prd.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, prd); err != nil {
			return err
		}

		if old != "" {
			bg.Add(func() error {
				return store.Remove(pathBase(old))
			})
		}

		return web.Respond(ctx, w, prd, http.StatusOK)
	}
}

func pathBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
