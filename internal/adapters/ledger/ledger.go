// Package ledger tracks participant identities, wristband links, point and
// victory totals, and an append-only activity log.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arenalabs/motionduel/pkg/metrics"
)

// Identity is a participant resolved from a wristband link.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Points    int    `json:"points"`
	Victories int    `json:"victories"`
}

// Link binds a wristband to an identity, with the band's own running total.
type Link struct {
	BandID      string    `json:"band_id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserEmail   string    `json:"user_email"`
	LinkedAt    time.Time `json:"linked_at"`
	TotalPoints int       `json:"total_points"`
}

// ActivityType classifies an activity record.
type ActivityType string

const (
	ActivityPointsEarned ActivityType = "points_earned"
	ActivityVictory      ActivityType = "victory"
	ActivityBandLinked   ActivityType = "band_linked"
	ActivityBandUnlinked ActivityType = "band_unlinked"
)

// Activity is one immutable entry in the log.
type Activity struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	Points      int          `json:"points,omitempty"`
	MatchID     string       `json:"match_id,omitempty"`
	BandID      string       `json:"band_id,omitempty"`
	At          time.Time    `json:"at"`
}

// Entry is one leaderboard row.
type Entry struct {
	Rank      int    `json:"rank"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Points    int    `json:"points"`
	Victories int    `json:"victories"`
}

// Ledger is the settlement and leaderboard contract.
type Ledger interface {
	// Link binds a wristband to an identity, creating the identity if it is
	// new. Linking a band already bound to someone else fails.
	Link(ctx context.Context, bandID string, identity Identity) error

	// Unlink releases a wristband. The identity and its totals survive.
	Unlink(ctx context.Context, bandID string) error

	// ResolveIdentity returns the identity currently linked to a wristband.
	ResolveIdentity(ctx context.Context, bandID string) (Identity, bool)

	// CreditPoints adds amount to the linked identity's total and to the
	// band's running total, and appends an activity record. A zero amount
	// is a valid no-op credit and is still logged.
	CreditPoints(ctx context.Context, bandID string, amount int, reason string) error

	// CreditVictory increments an identity's victory counter.
	CreditVictory(ctx context.Context, userID, matchID string) error

	// TopByVictories ranks identities by victories, ties broken by points.
	TopByVictories(ctx context.Context, n int) []Entry

	// TopByPoints ranks identities by points.
	TopByPoints(ctx context.Context, n int) []Entry

	// Activities returns an identity's log, newest first.
	Activities(ctx context.Context, userID string, limit int) []Activity
}

// InMemoryLedger implements Ledger for a single process deployment.
type InMemoryLedger struct {
	mu         sync.RWMutex
	users      map[string]*Identity
	links      map[string]*Link
	activities []Activity
}

// NewInMemoryLedger creates an empty ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		users: make(map[string]*Identity),
		links: make(map[string]*Link),
	}
}

// Link binds a wristband to an identity.
func (l *InMemoryLedger) Link(_ context.Context, bandID string, identity Identity) error {
	if bandID == "" || identity.ID == "" {
		return fmt.Errorf("%w: band id and identity id are required", ErrInvalidLink)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.links[bandID]; ok && existing.UserID != identity.ID {
		return fmt.Errorf("%w: band %s belongs to %s", ErrBandAlreadyLinked, bandID, existing.UserName)
	}

	user, ok := l.users[identity.ID]
	if !ok {
		u := identity
		l.users[identity.ID] = &u
		user = &u
	}

	l.links[bandID] = &Link{
		BandID:    bandID,
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		LinkedAt:  time.Now().UTC(),
	}
	l.appendLocked(Activity{
		UserID:      user.ID,
		Type:        ActivityBandLinked,
		Description: fmt.Sprintf("wristband %s linked", bandID),
		BandID:      bandID,
	})
	return nil
}

// Unlink releases a wristband.
func (l *InMemoryLedger) Unlink(_ context.Context, bandID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	link, ok := l.links[bandID]
	if !ok {
		return fmt.Errorf("%w: band %s", ErrBandNotLinked, bandID)
	}
	delete(l.links, bandID)
	l.appendLocked(Activity{
		UserID:      link.UserID,
		Type:        ActivityBandUnlinked,
		Description: fmt.Sprintf("wristband %s released", bandID),
		BandID:      bandID,
	})
	metrics.RecordBandUnlinked()
	return nil
}

// ResolveIdentity returns the identity linked to a wristband.
func (l *InMemoryLedger) ResolveIdentity(_ context.Context, bandID string) (Identity, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	link, ok := l.links[bandID]
	if !ok {
		return Identity{}, false
	}
	user, ok := l.users[link.UserID]
	if !ok {
		return Identity{}, false
	}
	return *user, true
}

// LinkInfo returns the raw link record for a wristband.
func (l *InMemoryLedger) LinkInfo(_ context.Context, bandID string) (Link, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	link, ok := l.links[bandID]
	if !ok {
		return Link{}, false
	}
	return *link, true
}

// CreditPoints settles points to the identity behind a wristband.
func (l *InMemoryLedger) CreditPoints(_ context.Context, bandID string, amount int, reason string) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidCredit, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	link, ok := l.links[bandID]
	if !ok {
		return fmt.Errorf("%w: band %s", ErrBandNotLinked, bandID)
	}
	user, ok := l.users[link.UserID]
	if !ok {
		return fmt.Errorf("%w: band %s", ErrBandNotLinked, bandID)
	}

	user.Points += amount
	link.TotalPoints += amount
	l.appendLocked(Activity{
		UserID:      user.ID,
		Type:        ActivityPointsEarned,
		Description: reason,
		Points:      amount,
		BandID:      bandID,
	})
	metrics.AddPointsCredited(amount)
	return nil
}

// CreditVictory increments an identity's victory counter.
func (l *InMemoryLedger) CreditVictory(_ context.Context, userID, matchID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	user, ok := l.users[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIdentity, userID)
	}
	user.Victories++
	l.appendLocked(Activity{
		UserID:      userID,
		Type:        ActivityVictory,
		Description: "won a match",
		MatchID:     matchID,
	})
	metrics.RecordVictoryCredited()
	return nil
}

// TopByVictories ranks identities by victories, ties broken by points.
func (l *InMemoryLedger) TopByVictories(_ context.Context, n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rankLocked(n, func(a, b *Identity) bool {
		if a.Victories != b.Victories {
			return a.Victories > b.Victories
		}
		return a.Points > b.Points
	})
}

// TopByPoints ranks identities by points.
func (l *InMemoryLedger) TopByPoints(_ context.Context, n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rankLocked(n, func(a, b *Identity) bool {
		return a.Points > b.Points
	})
}

// Activities returns an identity's log, newest first.
func (l *InMemoryLedger) Activities(_ context.Context, userID string, limit int) []Activity {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Activity
	for i := len(l.activities) - 1; i >= 0; i-- {
		if l.activities[i].UserID != userID {
			continue
		}
		out = append(out, l.activities[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// rankLocked sorts identities with the given ordering. Must be called with
// at least a read lock held.
func (l *InMemoryLedger) rankLocked(n int, less func(a, b *Identity) bool) []Entry {
	users := make([]*Identity, 0, len(l.users))
	for _, u := range l.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return less(users[i], users[j]) })

	if n > 0 && len(users) > n {
		users = users[:n]
	}
	out := make([]Entry, len(users))
	for i, u := range users {
		out[i] = Entry{
			Rank:      i + 1,
			UserID:    u.ID,
			UserName:  u.Name,
			Points:    u.Points,
			Victories: u.Victories,
		}
	}
	return out
}

// appendLocked stamps and stores an activity. Must be called with the write
// lock held.
func (l *InMemoryLedger) appendLocked(a Activity) {
	a.ID = uuid.NewString()
	a.At = time.Now().UTC()
	l.activities = append(l.activities, a)
}
