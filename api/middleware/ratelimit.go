package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gulitdev/gulit-api/api/web"
	"github.com/gulitdev/gulit-api/api/weberr"
	"github.com/gulitdev/gulit-api/rate"
)

// RateLimit rejects clients exceeding the per-IP budget of the limiter.
// The client id is the remote address without the port.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !lim.Check(ip) {
				err := errors.New("too many requests")
				return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
