package middleware

import (
	"context"
	"net/http"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/sirupsen/logrus"
)

// Errors turns handler errors into JSON responses. Errors carrying a
// weberr response behavior keep their body and status; anything else is
// masked as a plain 500. Every error is logged together with the request
// id and whatever fields were attached along the way.
func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			fields := map[string]interface{}{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			if body, code, ok := weberr.Response(err); ok {
				// Expected client failures are not server errors.
				if code < http.StatusInternalServerError {
					log.WithFields(logrus.Fields(fields)).Warn("WARN")
				} else {
					log.WithFields(logrus.Fields(fields)).Error("ERROR")
				}
				return web.Respond(ctx, w, body, code)
			}

			log.WithFields(logrus.Fields(fields)).Error("ERROR")

			er := struct {
				Error string `json:"error"`
			}{
				http.StatusText(http.StatusInternalServerError),
			}
			return web.Respond(ctx, w, er, http.StatusInternalServerError)
		}
		return h
	}
	return m
}
