// Package matchstore holds the single shared match record: a versioned
// document with create-with-exclusion, atomic partial updates, and a
// push-based change feed.
package matchstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/arenalabs/motionduel/internal/domain/model"
)

// RoundResult names a round winner inside a Patch.
type RoundResult struct {
	Round  int // 0 or 1
	Winner model.Winner
}

// Patch is an atomic partial update of the match record. Nil fields are left
// untouched.
type Patch struct {
	Status       *model.Phase
	CurrentRound *int
	RoundStart   *int64 // unix millis
	RoundResult  *RoundResult
	Winner       *model.Winner
}

// Store provides access to the one currently-running match.
type Store interface {
	// Create installs a new waiting match. It fails with ErrMatchInProgress
	// when the stored match has started and not yet finished.
	Create(ctx context.Context, m model.Match) error

	// Patch applies a partial update and notifies subscribers.
	Patch(ctx context.Context, p Patch) error

	// Current returns a copy of the match record, if any.
	Current(ctx context.Context) (model.Match, bool)

	// Subscribe registers a change callback. The callback receives a private
	// copy of the record, or nil when the record is cleared. It fires
	// immediately with the current state so late attachers converge.
	Subscribe(fn func(*model.Match)) (unsubscribe func())

	// Clear removes the record and notifies subscribers with nil.
	Clear(ctx context.Context)
}

// InMemoryStore implements Store for a single process deployment.
type InMemoryStore struct {
	mu      sync.Mutex
	current *model.Match
	version uint64

	subs    map[int]func(*model.Match)
	nextSub int
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{subs: make(map[int]func(*model.Match))}
}

// Create installs a new match, enforcing mutual exclusion against a match
// that is still in progress.
func (s *InMemoryStore) Create(_ context.Context, m model.Match) error {
	s.mu.Lock()
	if s.current != nil && s.current.InProgress() {
		s.mu.Unlock()
		return ErrMatchInProgress
	}
	clone := m.Clone()
	s.current = &clone
	s.version++
	fns, snap := s.snapshotLocked()
	s.mu.Unlock()

	notify(fns, snap)
	return nil
}

// Patch applies a partial update atomically.
func (s *InMemoryStore) Patch(_ context.Context, p Patch) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNoMatch
	}
	if p.CurrentRound != nil && *p.CurrentRound < s.current.CurrentRound {
		s.mu.Unlock()
		return fmt.Errorf("%w: round index %d precedes %d",
			ErrRoundRegression, *p.CurrentRound, s.current.CurrentRound)
	}

	if p.Status != nil {
		s.current.Status = *p.Status
	}
	if p.CurrentRound != nil {
		s.current.CurrentRound = *p.CurrentRound
	}
	if p.RoundStart != nil {
		s.current.RoundStart = *p.RoundStart
	}
	if p.RoundResult != nil && p.RoundResult.Round >= 0 && p.RoundResult.Round < 2 {
		w := p.RoundResult.Winner
		s.current.RoundWinners[p.RoundResult.Round] = &w
	}
	if p.Winner != nil {
		w := *p.Winner
		s.current.Winner = &w
	}
	s.version++
	fns, snap := s.snapshotLocked()
	s.mu.Unlock()

	notify(fns, snap)
	return nil
}

// Current returns a copy of the record.
func (s *InMemoryStore) Current(_ context.Context) (model.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return model.Match{}, false
	}
	return s.current.Clone(), true
}

// Version returns the record version, bumped on every mutation.
func (s *InMemoryStore) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe registers a change callback and fires it with the current state.
func (s *InMemoryStore) Subscribe(fn func(*model.Match)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	var snap *model.Match
	if s.current != nil {
		c := s.current.Clone()
		snap = &c
	}
	s.mu.Unlock()

	fn(snap)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Clear removes the record and notifies subscribers with nil.
func (s *InMemoryStore) Clear(_ context.Context) {
	s.mu.Lock()
	s.current = nil
	s.version++
	fns := make([]func(*model.Match), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	notify(fns, nil)
}

// snapshotLocked collects subscriber callbacks and a record snapshot. Must be
// called with the mutex held.
func (s *InMemoryStore) snapshotLocked() ([]func(*model.Match), *model.Match) {
	fns := make([]func(*model.Match), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	var snap *model.Match
	if s.current != nil {
		c := s.current.Clone()
		snap = &c
	}
	return fns, snap
}

// notify delivers an independent copy to each subscriber outside the lock.
func notify(fns []func(*model.Match), snap *model.Match) {
	for _, fn := range fns {
		if snap == nil {
			fn(nil)
			continue
		}
		c := snap.Clone()
		fn(&c)
	}
}
