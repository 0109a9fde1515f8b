package background

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Background runs fire-and-forget tasks on their own goroutines while
// keeping track of them, so the server can wait for completion on shutdown.
type Background struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

func (b *Background) Add(task func() error) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		defer func() {
			if rec := recover(); rec != nil {
				b.log.Error(fmt.Errorf("background task panic: %v", rec))
			}
		}()

		if err := task(); err != nil {
			b.log.Error(fmt.Errorf("background task: %w", err))
		}
	}()
}

// Shutdown waits for outstanding tasks, giving up when the context expires.
func (b *Background) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
