// Package repeater echoes content that a group keeps repeating.
//
// Each accepted chat owns a frequency window and a lane that handles its
// messages strictly in arrival order. Content that repeats often enough is
// promoted into the chat's dedup box; promoted content may then be sent back
// after a short random delay, at most once per cooldown.
package repeater

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-repeater-bot/internal/core/errors"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/clock"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/config"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/worker"
	"github.com/lueurxax/telegram-repeater-bot/internal/process/dedup"
	"github.com/lueurxax/telegram-repeater-bot/internal/process/fingerprint"
	"github.com/lueurxax/telegram-repeater-bot/internal/process/freeze"
	"github.com/lueurxax/telegram-repeater-bot/internal/process/resend"
	"github.com/lueurxax/telegram-repeater-bot/internal/process/window"
)

// Log field names.
const (
	logFieldScope       = "scope"
	logFieldSender      = "sender"
	logFieldFingerprint = "fingerprint"
	logFieldSummary     = "summary"
	logFieldTrace       = "trace_id"
	logFieldReason      = "reason"
	logFieldConsecutive = "consecutive"
	logFieldFrequency   = "frequency"
	logFieldImageID     = "image_id"
	logFieldOutcome     = "outcome"
)

// Outcome of handling one message, reported as a metric label.
const (
	outcomeNotGroup    = "not_group"
	outcomeNotAccepted = "not_accepted"
	outcomeFiltered    = "filtered"
	outcomeEmpty       = "empty"
	outcomeUnsupported = "unsupported"
	outcomeTracked     = "tracked"
	outcomePromoted    = "promoted"
)

// Sender delivers content to a chat.
type Sender interface {
	SendGroupMessage(ctx context.Context, scope int64, content domain.Content) error
}

// ImageFetcher returns the stored base64 payload of an image.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageID string) (string, error)
}

type scopeState struct {
	id     int64
	window *window.Cache
	filter *scopeFilter
	box    *dedup.Box
}

// Repeater is the message handler. It is safe for concurrent use.
type Repeater struct {
	cfg     config.RepeaterConfig
	scopes  map[int64]*scopeState
	boxes   *dedup.Boxes
	freeze  *freeze.Registry
	engine  *resend.Engine
	lanes   *worker.Lanes[int64]
	tasks   *worker.Group
	fetcher ImageFetcher
	sender  Sender
	clock   clock.Clock
	rand    resend.Rand
	logger  *zerolog.Logger
}

// Option customizes a Repeater.
type Option func(*Repeater)

// WithClock replaces the wall clock used for timestamps, delays and cooldowns.
func WithClock(c clock.Clock) Option {
	return func(r *Repeater) {
		r.clock = c
	}
}

// WithRand replaces the random source used for delays and resend draws.
func WithRand(rnd resend.Rand) Option {
	return func(r *Repeater) {
		r.rand = rnd
	}
}

// New creates a repeater for the accepted chats of cfg. boxes must hold a box
// for every accepted chat. fetcher may be nil when no image store is running.
func New(cfg config.RepeaterConfig, boxes *dedup.Boxes, fetcher ImageFetcher, sender Sender, logger *zerolog.Logger, opts ...Option) (*Repeater, error) {
	r := &Repeater{
		cfg:     cfg,
		scopes:  make(map[int64]*scopeState, len(cfg.AcceptGroups)),
		boxes:   boxes,
		fetcher: fetcher,
		sender:  sender,
		clock:   clock.Real{},
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.rand == nil {
		r.rand = resend.NewRand(cfg.RandSeed)
	}

	l := logger.With().Str("component", "repeater").Logger()
	r.logger = &l

	r.freeze = freeze.NewRegistry(cfg.FrozenTime, r.clock)
	r.engine = resend.NewEngine(boxes, r.freeze, r.clock, r.rand, cfg.AvgDelay, cfg.BehaviorQ)
	r.lanes = worker.NewLanes[int64]("repeater", r.logger)
	r.tasks = worker.NewGroup(r.logger)

	for _, id := range cfg.AcceptGroups {
		box, err := boxes.Box(id)
		if err != nil {
			return nil, err
		}

		filter, unknown := newScopeFilter(cfg.BlockedKeywords, cfg.Groups[id], cfg.CaseInsensitiveWords)
		if len(unknown) > 0 {
			r.logger.Warn().Int64(logFieldScope, id).Strs("types", unknown).Msg("ignoring unknown excluded item types")
		}

		r.scopes[id] = &scopeState{
			id:     id,
			window: window.New(cfg.TimeWindow),
			filter: filter,
			box:    box,
		}
	}

	r.logConfig()

	return r, nil
}

func (r *Repeater) logConfig() {
	groups := zerolog.Dict()

	for _, id := range r.cfg.AcceptGroups {
		rules := r.cfg.Groups[id]
		groups.Dict(strconv.FormatInt(id, 10), zerolog.Dict().
			Ints64("except_senders", rules.ExceptSenders).
			Strs("except_types", rules.ExceptTypes).
			Strs("except_words", rules.ExceptWords))
	}

	r.logger.Info().
		Ints64("accept_groups", r.cfg.AcceptGroups).
		Dur("time_window", r.cfg.TimeWindow).
		Int("repeat_freq", r.cfg.RepeatFreq).
		Int("repeat_count", r.cfg.RepeatCount).
		Float64("behavior_q", r.cfg.BehaviorQ).
		Dur("avg_delay", r.cfg.AvgDelay).
		Dur("frozen_time", r.cfg.FrozenTime).
		Strs("blocked_keywords", r.cfg.BlockedKeywords).
		Dict("groups", groups).
		Msg("repeater configured")
}

// Name identifies the listener in logs.
func (r *Repeater) Name() string {
	return "repeater"
}

// OnMessage queues msg on its chat's lane. Messages from private chats and
// chats outside the accept list are dropped here.
func (r *Repeater) OnMessage(ctx context.Context, msg domain.Message) {
	if !msg.IsGroup() {
		observability.MessagesHandled.WithLabelValues(outcomeNotGroup).Inc()

		return
	}

	st, ok := r.scopes[msg.Scope]
	if !ok {
		observability.MessagesHandled.WithLabelValues(outcomeNotAccepted).Inc()

		return
	}

	if !r.lanes.Submit(st.id, func() { r.handle(ctx, st, msg) }) {
		r.logger.Warn().Int64(logFieldScope, st.id).Msg("repeater closed, dropping message")
	}
}

// handle runs the ordered part of the pipeline for one message and starts the
// resend decision in the background. It returns the outcome for tests and metrics.
func (r *Repeater) handle(ctx context.Context, st *scopeState, msg domain.Message) string {
	trace := uuid.NewString()
	logger := r.logger.With().
		Str(logFieldTrace, trace).
		Int64(logFieldScope, st.id).
		Int64(logFieldSender, msg.Sender).
		Logger()

	if reason, drop := st.filter.Check(msg); drop {
		observability.FilterDrops.WithLabelValues(string(reason)).Inc()
		observability.MessagesHandled.WithLabelValues(outcomeFiltered).Inc()
		logger.Debug().Str(logFieldReason, string(reason)).Msg("message filtered")

		return outcomeFiltered
	}

	content := fingerprint.Normalize(msg.Items)
	if len(content) == 0 {
		observability.MessagesHandled.WithLabelValues(outcomeEmpty).Inc()

		return outcomeEmpty
	}

	fp, err := fingerprint.Of(content)
	if err != nil {
		observability.MessagesHandled.WithLabelValues(outcomeUnsupported).Inc()
		logger.Error().Err(err).Msg("cannot fingerprint message")

		return outcomeUnsupported
	}

	summary := fingerprint.Summary(content)
	logger = logger.With().
		Str(logFieldFingerprint, fingerprint.Short(fp)).
		Str(logFieldSummary, summary).
		Logger()

	consecutive, frequency := st.window.Push(fp, r.clock.Now(), content)

	logger.Debug().
		Int(logFieldConsecutive, consecutive).
		Int(logFieldFrequency, frequency).
		Msg("message tracked")

	outcome := outcomeTracked

	if frequency >= r.cfg.RepeatFreq || consecutive >= r.cfg.RepeatCount {
		if r.promote(ctx, st, fp, content, &logger) {
			outcome = outcomePromoted
		}
	}

	observability.MessagesHandled.WithLabelValues(outcome).Inc()

	// the delay before resending is not cut short by shutdown
	resendCtx := context.WithoutCancel(ctx)

	r.tasks.Go("resend", func() {
		r.resend(resendCtx, st.id, fp, consecutive, content, &logger)
	})

	return outcome
}

// promote reports whether fp is in the box after the call.
func (r *Repeater) promote(ctx context.Context, st *scopeState, fp string, content domain.Content, logger *zerolog.Logger) bool {
	var result dedup.PromoteResult

	// queued messages are still promoted while lanes drain on shutdown
	err := worker.RunWithTimeout(context.WithoutCancel(ctx), r.cfg.StoreTimeout, func(ctx context.Context) error {
		var err error

		result, err = st.box.Promote(ctx, fp, content)

		return err
	})
	if err != nil {
		observability.Promotions.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("failed to promote repeat")

		return false
	}

	observability.Promotions.WithLabelValues(result.String()).Inc()

	if result == dedup.Added {
		logger.Info().Msg("repeat promoted")
	} else {
		logger.Debug().Msg("repeat already promoted")
	}

	return true
}

func (r *Repeater) resend(ctx context.Context, scope int64, fp string, consecutive int, content domain.Content, logger *zerolog.Logger) {
	observability.InFlightResends.Inc()
	defer observability.InFlightResends.Dec()

	start := r.clock.Now()
	ok, outcome := r.engine.Decide(ctx, fp, consecutive, scope)

	observability.ResendDecisions.WithLabelValues(string(outcome)).Inc()

	if outcome != resend.OutcomeNotPromoted && outcome != resend.OutcomeFrozen {
		observability.ResendDelaySeconds.Observe(r.clock.Now().Sub(start).Seconds())
	}

	if !ok {
		if outcome != resend.OutcomeNotPromoted {
			logger.Debug().Str(logFieldOutcome, string(outcome)).Msg("not resending")
		}

		return
	}

	if r.freeze.Freeze(freeze.Key{Fingerprint: fp, Scope: scope}) {
		observability.ResendsSent.WithLabelValues("duplicate").Inc()
		logger.Info().Msg("repeat already frozen, skipping send")

		return
	}

	resolved := r.resolve(ctx, content, logger)
	if len(resolved) == 0 {
		observability.ResendsSent.WithLabelValues("empty").Inc()
		logger.Warn().Msg("nothing left to resend")

		return
	}

	if err := r.sender.SendGroupMessage(ctx, scope, resolved); err != nil {
		if errors.Is(err, apperrors.ErrNothingToSend) {
			observability.ResendsSent.WithLabelValues("empty").Inc()
			logger.Warn().Msg("nothing left to resend")

			return
		}

		observability.ResendsSent.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("failed to resend repeat")

		return
	}

	observability.ResendsSent.WithLabelValues("sent").Inc()
	logger.Info().Int(logFieldConsecutive, consecutive).Msg("repeat resent")
}

// resolve returns a copy of content with image payloads loaded. Images whose
// payload cannot be fetched are left out. Without an image store images are
// kept as they are and sent by file id.
func (r *Repeater) resolve(ctx context.Context, content domain.Content, logger *zerolog.Logger) domain.Content {
	out := make(domain.Content, 0, len(content))

	for _, item := range content {
		if item.Type != domain.ItemImage || r.fetcher == nil {
			out = append(out, item)

			continue
		}

		payload, err := r.fetcher.FetchImage(ctx, item.UniqueID)
		if err != nil {
			level := zerolog.ErrorLevel
			if errors.Is(err, apperrors.ErrImageNotFound) {
				level = zerolog.WarnLevel
			}

			logger.WithLevel(level).Err(err).Str(logFieldImageID, item.UniqueID).Msg("omitting image from resend")

			continue
		}

		item.Base64 = payload
		out = append(out, item)
	}

	return out
}

// ReportStats refreshes the state gauges.
func (r *Repeater) ReportStats() {
	for id, st := range r.scopes {
		observability.WindowEntries.WithLabelValues(strconv.FormatInt(id, 10)).Set(float64(st.window.Len()))
	}

	observability.FrozenKeys.Set(float64(r.freeze.Len()))
	observability.PromotedFingerprints.Set(float64(r.boxes.Total()))
}

// Wait blocks until every started resend has finished.
func (r *Repeater) Wait() {
	r.tasks.Wait()
}

// Close stops accepting messages, drains the lanes and waits for pending resends.
func (r *Repeater) Close() {
	r.lanes.Close()
	r.tasks.Wait()
}
