package orchestrator

import (
	"sync"

	"github.com/arenalabs/motionduel/internal/adapters/ledger"
	"github.com/arenalabs/motionduel/internal/domain/model"
)

// Frame is one display update. Frames are advisory: any consumer can miss or
// coalesce them, because the match record in the store stays authoritative.
type Frame struct {
	MatchID      string          `json:"match_id,omitempty"`
	Phase        model.Phase     `json:"phase,omitempty"`
	Round        int             `json:"round"`
	Movement     string          `json:"movement,omitempty"`
	Countdown    int             `json:"countdown,omitempty"`
	RemainingSec int             `json:"remaining_sec"`
	Points       [2]int          `json:"points"`
	BandIDs      [2]string       `json:"band_ids"`
	RoundWinners [2]*model.Winner `json:"round_winners"`
	Winner       *model.Winner   `json:"winner,omitempty"`
	Leaderboard  []ledger.Entry  `json:"leaderboard,omitempty"`
}

// feed fans frames out to display subscribers.
type feed struct {
	mu      sync.Mutex
	subs    map[int]func(Frame)
	nextSub int
	last    Frame
	primed  bool
}

func newFeed() *feed {
	return &feed{subs: make(map[int]func(Frame))}
}

// subscribe registers a frame callback. A subscriber attaching mid-match
// immediately receives the latest frame.
func (f *feed) subscribe(fn func(Frame)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	primed, last := f.primed, f.last
	f.mu.Unlock()

	if primed {
		fn(last)
	}
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *feed) publish(fr Frame) {
	f.mu.Lock()
	f.last = fr
	f.primed = true
	fns := make([]func(Frame), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(fr)
	}
}
