package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web/mutil"
)

// Logger emits a "started"/"completed" pair per request, carrying the
// request id, route information and the wrapped writer's status and
// byte count.
func Logger(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			log := log

			if rid := ContextRequestID(ctx); rid != "" {
				log = log.WithField("req_id", rid)
			}

			log = log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"remoteaddr": r.RemoteAddr,
			})

			if q := r.URL.RawQuery; q != "" {
				log = log.WithField("query", q)
			}

			log.Info("started")
			startTime := time.Now().UTC()

			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			log = log.WithFields(logrus.Fields{
				"statuscode": lw.Status(),
				"bytes":      lw.BytesWritten(),
				"duration":   time.Since(startTime).String(),
			})
			log.Info("completed")
			return err
		}
		return h
	}
	return m
}
