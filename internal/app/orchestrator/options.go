package orchestrator

import (
	"time"

	"github.com/arenalabs/motionduel/pkg/logger"
)

// Timing groups every interval the driver runs on. The defaults mirror the
// live event pacing; tests shrink them to keep runs fast.
type Timing struct {
	Kickoff           time.Duration // waiting to round 1 intro
	IntroDwell        time.Duration // movement explanation screen
	CountdownTick     time.Duration
	CountdownTicks    int
	RoundCheck        time.Duration // elapsed-time recomputation
	LiveTick          time.Duration // live score readout cadence
	SettleDelay       time.Duration // capture-off to final readout
	InterRoundDelay   time.Duration
	LeaderboardReveal time.Duration
}

// DefaultTiming returns the production pacing.
func DefaultTiming() Timing {
	return Timing{
		Kickoff:           time.Second,
		IntroDwell:        5 * time.Second,
		CountdownTick:     time.Second,
		CountdownTicks:    3,
		RoundCheck:        100 * time.Millisecond,
		LiveTick:          time.Second,
		SettleDelay:       500 * time.Millisecond,
		InterRoundDelay:   3 * time.Second,
		LeaderboardReveal: 8 * time.Second,
	}
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithTiming overrides the phase pacing.
func WithTiming(t Timing) Option {
	return func(o *Orchestrator) {
		if t.CountdownTicks < 1 {
			t.CountdownTicks = 1
		}
		o.timing = t
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLeaderboardSize sets how many rows the reveal frame carries.
func WithLeaderboardSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.leaderboardSize = n
		}
	}
}
