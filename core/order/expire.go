package order

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically expires orders that stayed pending longer than TTL,
// so abandoned checkouts do not accumulate as pending forever.
type Sweeper struct {
	DB       *sqlx.DB
	Log      logrus.FieldLogger
	TTL      time.Duration
	Interval time.Duration
}

// Run blocks, sweeping on every tick until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-t.C:
			n, err := ExpireStale(ctx, s.DB, time.Now().UTC().Add(-s.TTL))
			if err != nil {
				s.Log.WithField("error", err).Error("sweeping stale orders")
				continue
			}
			if n > 0 {
				s.Log.WithField("expired", n).Info("swept stale orders")
			}
		}
	}
}
