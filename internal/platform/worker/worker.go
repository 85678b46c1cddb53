// Package worker provides the goroutine plumbing shared by the bot: keyed
// sequential lanes, tracked background tasks, ticker loops and panic recovery.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Wait blocks until duration elapses or context is canceled.
// Returns a wrapped context error if context is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// RunWithTimeout runs fn with a timeout derived from the parent context.
// The function receives a context that will be canceled after timeout.
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(timeoutCtx)
}

// RecoverPanic recovers from panics and logs them.
// Use as: defer worker.RecoverPanic(logger, "operation name")
func RecoverPanic(logger *zerolog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error().
			Interface("panic", r).
			Str("operation", operation).
			Msg("recovered from panic")
	}
}

// Group runs fire-and-forget tasks and lets the owner wait for them on shutdown.
// Panics inside a task are recovered and logged.
type Group struct {
	wg     sync.WaitGroup
	logger *zerolog.Logger
}

// NewGroup creates a task group.
func NewGroup(logger *zerolog.Logger) *Group {
	return &Group{logger: getLogger(logger)}
}

// Go runs fn in its own goroutine.
func (g *Group) Go(name string, fn func()) {
	g.wg.Add(1)

	go func() {
		defer g.wg.Done()
		defer RecoverPanic(g.logger, name)

		fn()
	}()
}

// Wait blocks until every started task has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
