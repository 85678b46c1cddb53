// Package resend decides whether a promoted repeat should be echoed back to the chat.
package resend

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lueurxax/telegram-repeater-bot/internal/platform/clock"
	"github.com/lueurxax/telegram-repeater-bot/internal/process/freeze"
)

// Outcome explains a decision, used for metrics and logs.
type Outcome string

const (
	OutcomeNotPromoted Outcome = "not_promoted"
	OutcomeFrozen      Outcome = "frozen"
	OutcomeCanceled    Outcome = "canceled"
	OutcomeRejected    Outcome = "rejected"
	OutcomeAccepted    Outcome = "accepted"
)

// Promoted answers whether a fingerprint is a known repeat in a scope.
type Promoted interface {
	Contains(scope int64, fp string) bool
}

// Freezer is the cooldown check used before rolling the dice.
type Freezer interface {
	CheckAndRefresh(key freeze.Key) bool
}

// Rand is a source of uniform floats in [0, 1).
type Rand interface {
	Float64() float64
}

// LockedRand makes a *rand.Rand safe for concurrent use.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a concurrency-safe generator. A zero seed picks a random one.
func NewRand(seed uint64) *LockedRand {
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &LockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns a uniform float in [0, 1).
func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.r.Float64()
}

// Probability returns 1 - q^k, the chance to resend after k consecutive repeats.
func Probability(k int, q float64) float64 {
	if k <= 0 {
		return 0
	}

	return 1 - math.Pow(q, float64(k))
}

// Engine makes resend decisions.
type Engine struct {
	promoted Promoted
	freezer  Freezer
	clock    clock.Clock
	rand     Rand
	avgDelay time.Duration
	q        float64
}

// NewEngine creates an engine. avgDelay is the mean of the uniform reaction delay
// and q is the decay constant in (0, 1).
func NewEngine(promoted Promoted, freezer Freezer, clk clock.Clock, rnd Rand, avgDelay time.Duration, q float64) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}

	if rnd == nil {
		rnd = NewRand(0)
	}

	return &Engine{
		promoted: promoted,
		freezer:  freezer,
		clock:    clk,
		rand:     rnd,
		avgDelay: avgDelay,
		q:        q,
	}
}

// ShouldResend reports whether fp should be sent back to scope. It blocks for a
// random delay in [0, 2*avgDelay] before drawing.
func (e *Engine) ShouldResend(ctx context.Context, fp string, consecutive int, scope int64) bool {
	ok, _ := e.Decide(ctx, fp, consecutive, scope)

	return ok
}

// Decide is ShouldResend with the reason for the result.
func (e *Engine) Decide(ctx context.Context, fp string, consecutive int, scope int64) (bool, Outcome) {
	if !e.promoted.Contains(scope, fp) {
		return false, OutcomeNotPromoted
	}

	if e.freezer.CheckAndRefresh(freeze.Key{Fingerprint: fp, Scope: scope}) {
		return false, OutcomeFrozen
	}

	if err := e.clock.Sleep(ctx, e.delay()); err != nil {
		return false, OutcomeCanceled
	}

	if e.rand.Float64() < Probability(consecutive, e.q) {
		return true, OutcomeAccepted
	}

	return false, OutcomeRejected
}

func (e *Engine) delay() time.Duration {
	if e.avgDelay <= 0 {
		return 0
	}

	return time.Duration(e.rand.Float64() * 2 * float64(e.avgDelay))
}
