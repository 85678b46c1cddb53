// Package dedup keeps the per-scope set of content fingerprints that have been
// promoted to known repeats. Each set lives in memory and is backed by a Repository.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/lueurxax/telegram-repeater-bot/internal/core/domain"
	apperrors "github.com/lueurxax/telegram-repeater-bot/internal/core/errors"
)

// Repository persists promoted fingerprints.
type Repository interface {
	// LoadBoxes returns the stored fingerprints of every scope that has a box.
	// Scopes without a box are absent from the result.
	LoadBoxes(ctx context.Context, scopes []int64) (map[int64][]string, error)
	// CreateBox creates an empty box for scope. Creating an existing box is a no-op.
	CreateBox(ctx context.Context, scope int64) error
	// AddToBox adds fp to the scope's box and stores content under fp once.
	// It reports whether the entry was newly inserted.
	AddToBox(ctx context.Context, scope int64, fp string, content domain.Content) (bool, error)
}

// PromoteResult tells the caller what Promote did.
type PromoteResult int

const (
	// Added means the fingerprint was newly promoted.
	Added PromoteResult = iota
	// AlreadyPresent means the fingerprint was promoted earlier.
	AlreadyPresent
)

func (r PromoteResult) String() string {
	if r == Added {
		return "added"
	}

	return "already_present"
}

// Box is the promoted-fingerprint set of a single scope.
type Box struct {
	scope int64
	repo  Repository

	mu  sync.RWMutex
	set map[string]struct{}

	// serializes promotions so two writers never race on the same fingerprint
	promoteMu sync.Mutex
}

func newBox(scope int64, repo Repository, fingerprints []string) *Box {
	set := make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		set[fp] = struct{}{}
	}

	return &Box{scope: scope, repo: repo, set: set}
}

// Contains reports whether fp has been promoted.
func (b *Box) Contains(fp string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.set[fp]

	return ok
}

// Len returns the number of promoted fingerprints.
func (b *Box) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.set)
}

// Promote persists fp with its content and then adds it to the in-memory set.
// On a storage error the in-memory set is left untouched.
func (b *Box) Promote(ctx context.Context, fp string, content domain.Content) (PromoteResult, error) {
	if b.Contains(fp) {
		return AlreadyPresent, nil
	}

	b.promoteMu.Lock()
	defer b.promoteMu.Unlock()

	if b.Contains(fp) {
		return AlreadyPresent, nil
	}

	inserted, err := b.repo.AddToBox(ctx, b.scope, fp, content)
	if err != nil {
		return AlreadyPresent, fmt.Errorf("add %s to box %d: %w", fp, b.scope, err)
	}

	b.mu.Lock()
	b.set[fp] = struct{}{}
	b.mu.Unlock()

	if !inserted {
		return AlreadyPresent, nil
	}

	return Added, nil
}

// Boxes holds one Box per accepted scope.
type Boxes struct {
	repo  Repository
	boxes map[int64]*Box
}

// LoadAll reads the persisted boxes of scopes into memory, creating empty boxes
// for scopes that have none yet.
func LoadAll(ctx context.Context, repo Repository, scopes []int64) (*Boxes, error) {
	stored, err := repo.LoadBoxes(ctx, scopes)
	if err != nil {
		return nil, fmt.Errorf("load boxes: %w", err)
	}

	boxes := &Boxes{repo: repo, boxes: make(map[int64]*Box, len(scopes))}

	for _, scope := range scopes {
		fingerprints, ok := stored[scope]
		if !ok {
			if err := repo.CreateBox(ctx, scope); err != nil {
				return nil, fmt.Errorf("create box %d: %w", scope, err)
			}
		}

		boxes.boxes[scope] = newBox(scope, repo, fingerprints)
	}

	return boxes, nil
}

// Box returns the box of scope or ErrUnknownScope.
func (bs *Boxes) Box(scope int64) (*Box, error) {
	box, ok := bs.boxes[scope]
	if !ok {
		return nil, fmt.Errorf("box %d: %w", scope, apperrors.ErrUnknownScope)
	}

	return box, nil
}

// Contains reports whether fp is promoted in scope. Unknown scopes contain nothing.
func (bs *Boxes) Contains(scope int64, fp string) bool {
	box, ok := bs.boxes[scope]
	if !ok {
		return false
	}

	return box.Contains(fp)
}

// Total returns the number of promoted fingerprints across all scopes.
func (bs *Boxes) Total() int {
	total := 0
	for _, box := range bs.boxes {
		total += box.Len()
	}

	return total
}
