// Package freeze implements the resend cooldown: a table of independent
// single-shot timers keyed by fingerprint and scope.
package freeze

import (
	"strconv"
	"sync"
	"time"

	"github.com/lueurxax/telegram-repeater-bot/internal/platform/clock"
)

// Key identifies content in a chat.
type Key struct {
	Fingerprint string
	Scope       int64
}

func (k Key) String() string {
	return k.Fingerprint + "@" + strconv.FormatInt(k.Scope, 10)
}

type entry struct {
	timer clock.Timer
	gen   uint64
}

// Registry tracks which keys are in cooldown.
type Registry struct {
	mu       sync.Mutex
	entries  map[Key]*entry
	gen      uint64
	duration time.Duration
	clock    clock.Clock
}

// NewRegistry creates a registry whose keys stay frozen for duration after the last touch.
func NewRegistry(duration time.Duration, clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.Real{}
	}

	return &Registry{
		entries:  make(map[Key]*entry),
		duration: duration,
		clock:    clk,
	}
}

// CheckAndRefresh reports whether key is frozen. A frozen key has its expiry
// pushed back to a full duration from now.
func (r *Registry) CheckAndRefresh(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return false
	}

	r.rescheduleLocked(key, e)

	return true
}

// Freeze puts key into cooldown. It returns true if the key was already frozen,
// in which case only its expiry is extended.
func (r *Registry) Freeze(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		r.rescheduleLocked(key, e)

		return true
	}

	e := &entry{}
	r.entries[key] = e
	r.rescheduleLocked(key, e)

	return false
}

// Frozen reports whether key is frozen without touching its expiry.
func (r *Registry) Frozen(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.entries[key]

	return ok
}

// Len returns the number of frozen keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// rescheduleLocked replaces the entry's timer. Must be called with mu held.
func (r *Registry) rescheduleLocked(key Key, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}

	r.gen++
	gen := r.gen
	e.gen = gen
	e.timer = r.clock.AfterFunc(r.duration, func() { r.expire(key, gen) })
}

// expire removes key unless it was rescheduled after this timer was armed.
// A stale timer that lost the race with Stop lands here with an old generation.
func (r *Registry) expire(key Key, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok && e.gen == gen {
		delete(r.entries, key)
	}
}
