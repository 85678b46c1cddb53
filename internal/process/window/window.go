// Package window tracks how often content fingerprints occur within a trailing
// time window and how many times in a row the same fingerprint arrived.
package window

import (
	"container/list"
	"sync"
	"time"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
)

// Entry is one observed message held while it stays inside the window.
type Entry struct {
	Fingerprint string
	Timestamp   time.Time
	Content     domain.Content
}

// Cache is a sliding-window frequency counter for a single scope.
// Entries must be pushed in non-decreasing timestamp order.
type Cache struct {
	mu        sync.Mutex
	window    time.Duration
	order     *list.List // of Entry, oldest at front
	counts    map[string]int
	prevFP    string
	prevCount int
}

// New creates a cache that keeps entries no older than window relative to the newest push.
func New(window time.Duration) *Cache {
	return &Cache{
		window: window,
		order:  list.New(),
		counts: make(map[string]int),
	}
}

// Push records fp at ts and returns the consecutive-repeat count of fp and its
// in-window frequency after eviction. Empty content is ignored and yields (0, 0).
func (c *Cache) Push(fp string, ts time.Time, content domain.Content) (consecutive, frequency int) {
	if len(content) == 0 {
		return 0, 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.PushBack(Entry{Fingerprint: fp, Timestamp: ts, Content: content})
	c.counts[fp]++

	c.evictLocked(ts)

	if fp == c.prevFP && c.prevCount > 0 {
		c.prevCount++
	} else {
		c.prevFP = fp
		c.prevCount = 1
	}

	return c.prevCount, c.counts[fp]
}

// evictLocked drops entries older than window relative to now. Must be called with mu held.
func (c *Cache) evictLocked(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		entry, _ := front.Value.(Entry)
		if now.Sub(entry.Timestamp) <= c.window {
			return
		}

		c.order.Remove(front)

		if n := c.counts[entry.Fingerprint]; n <= 1 {
			delete(c.counts, entry.Fingerprint)
		} else {
			c.counts[entry.Fingerprint] = n - 1
		}
	}
}

// Frequency returns the current in-window count of fp.
func (c *Cache) Frequency(fp string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counts[fp]
}

// Len returns the number of entries currently in the window.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}
