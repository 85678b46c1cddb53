package worker

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Lanes runs submitted jobs one at a time per key, in submission order.
// Different keys run in parallel. A lane goroutine exists only while its key
// has queued work.
type Lanes[K comparable] struct {
	mu     sync.Mutex
	lanes  map[K]*lane
	closed bool
	wg     sync.WaitGroup
	logger *zerolog.Logger
	name   string
}

type lane struct {
	queue []func()
}

// NewLanes creates an empty lane set. name is used in panic logs.
func NewLanes[K comparable](name string, logger *zerolog.Logger) *Lanes[K] {
	return &Lanes[K]{
		lanes:  make(map[K]*lane),
		logger: getLogger(logger),
		name:   name,
	}
}

// Submit queues job on the lane of key. It returns false once Close was called.
func (l *Lanes[K]) Submit(key K, job func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}

	ln, ok := l.lanes[key]
	if !ok {
		ln = &lane{}
		l.lanes[key] = ln

		l.wg.Add(1)

		go l.drain(key, ln)
	}

	ln.queue = append(ln.queue, job)

	return true
}

// Active returns the number of keys with queued or running work.
func (l *Lanes[K]) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.lanes)
}

// Close stops accepting jobs and waits for queued ones to finish.
func (l *Lanes[K]) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *Lanes[K]) drain(key K, ln *lane) {
	defer l.wg.Done()

	for {
		l.mu.Lock()

		if len(ln.queue) == 0 {
			delete(l.lanes, key)
			l.mu.Unlock()

			return
		}

		job := ln.queue[0]
		ln.queue[0] = nil
		ln.queue = ln.queue[1:]

		l.mu.Unlock()

		l.run(key, job)
	}
}

func (l *Lanes[K]) run(key K, job func()) {
	defer RecoverPanic(l.logger, fmt.Sprintf("%s lane %v", l.name, key))

	job()
}
