// Package recorder appends every incoming chat message to the raw message log.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/worker"
	db "github.com/lueurxax/telegram-repeater-bot/internal/storage"
)

const (
	defaultWriteTimeout = 10 * time.Second

	statusOK    = "ok"
	statusError = "error"
)

// Recorder stores incoming messages as-is. Failures are logged and dropped.
type Recorder struct {
	repo    Repository
	timeout time.Duration
	now     func() time.Time
	tasks   *worker.Group
	logger  *zerolog.Logger
}

func New(repo Repository, timeout time.Duration, logger *zerolog.Logger) *Recorder {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	l := logger.With().Str("component", "recorder").Logger()

	return &Recorder{
		repo:    repo,
		timeout: timeout,
		now:     time.Now,
		tasks:   worker.NewGroup(&l),
		logger:  &l,
	}
}

func (r *Recorder) Name() string {
	return "recorder"
}

// OnMessage schedules the write of msg and returns without waiting for it.
func (r *Recorder) OnMessage(ctx context.Context, msg domain.Message) {
	// writes started before shutdown still finish within the timeout
	writeCtx := context.WithoutCancel(ctx)

	r.tasks.Go("recorder.record", func() {
		if err := r.Record(writeCtx, msg); err != nil {
			observability.RecorderWrites.WithLabelValues(statusError).Inc()
			r.logger.Error().Err(err).
				Int64("chat_id", msg.Scope).
				Str("chat_kind", string(msg.Kind)).
				Msg("failed to record message")

			return
		}

		observability.RecorderWrites.WithLabelValues(statusOK).Inc()
	})
}

// Wait blocks until all scheduled writes finish.
func (r *Recorder) Wait() {
	r.tasks.Wait()
}

// Record writes msg to the raw message log.
func (r *Recorder) Record(ctx context.Context, msg domain.Message) error {
	payload, err := json.Marshal(msg.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	receivedAt := msg.Timestamp
	if receivedAt.IsZero() {
		receivedAt = r.now()
	}

	raw := &db.RawMessage{
		ID:         uuid.NewString(),
		ChatKind:   msg.Kind,
		ChatID:     msg.Scope,
		SenderID:   msg.Sender,
		Payload:    payload,
		ReceivedAt: receivedAt,
	}

	return worker.RunWithTimeout(ctx, r.timeout, func(ctx context.Context) error {
		return r.repo.SaveRawMessage(ctx, raw)
	})
}
