// Package model contains the match domain types shared between layers.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Axis identifies one of the three motion-magnitude channels a wristband reports.
type Axis string

const (
	AxisX Axis = "X"
	AxisY Axis = "Y"
	AxisZ Axis = "Z"
)

// Valid reports whether the axis is one of X, Y, Z.
func (a Axis) Valid() bool {
	return a == AxisX || a == AxisY || a == AxisZ
}

// Slot is one of the two fixed participant positions in a match.
type Slot int

const (
	SlotA Slot = iota
	SlotB
)

func (s Slot) String() string {
	if s == SlotA {
		return "slot_a"
	}
	return "slot_b"
}

// Winner is the outcome of a round or a match.
type Winner string

const (
	WinnerSlotA Winner = "slot_a"
	WinnerSlotB Winner = "slot_b"
	WinnerTie   Winner = "tie"
)

// Phase is the match lifecycle state.
type Phase string

const (
	PhaseWaiting         Phase = "waiting"
	PhaseRound1Intro     Phase = "round1_intro"
	PhaseRound1Countdown Phase = "round1_countdown"
	PhaseRound1Active    Phase = "round1_active"
	PhaseRound2Intro     Phase = "round2_intro"
	PhaseRound2Countdown Phase = "round2_countdown"
	PhaseRound2Active    Phase = "round2_active"
	PhaseFinished        Phase = "finished"
)

// Terminal reports whether the phase ends the match lifecycle.
func (p Phase) Terminal() bool { return p == PhaseFinished }

// InProgress reports whether a match in this phase blocks creation of a new
// one. Waiting matches never started, so they may be replaced.
func (p Phase) InProgress() bool {
	return p != PhaseWaiting && p != PhaseFinished && p != ""
}

// Round returns the zero-based round index a phase belongs to, or -1 for
// waiting and finished.
func (p Phase) Round() int {
	switch p {
	case PhaseRound1Intro, PhaseRound1Countdown, PhaseRound1Active:
		return 0
	case PhaseRound2Intro, PhaseRound2Countdown, PhaseRound2Active:
		return 1
	}
	return -1
}

// Countdown reports whether the phase is a pre-round countdown.
func (p Phase) Countdown() bool {
	return p == PhaseRound1Countdown || p == PhaseRound2Countdown
}

// Active reports whether the phase is a live capture round.
func (p Phase) Active() bool {
	return p == PhaseRound1Active || p == PhaseRound2Active
}

// IntroPhase returns the intro phase for a round index.
func IntroPhase(round int) Phase {
	if round == 0 {
		return PhaseRound1Intro
	}
	return PhaseRound2Intro
}

// CountdownPhase returns the countdown phase for a round index.
func CountdownPhase(round int) Phase {
	if round == 0 {
		return PhaseRound1Countdown
	}
	return PhaseRound2Countdown
}

// ActivePhase returns the active phase for a round index.
func ActivePhase(round int) Phase {
	if round == 0 {
		return PhaseRound1Active
	}
	return PhaseRound2Active
}

// Round is the static per-round configuration captured at match creation.
type Round struct {
	Movement string `json:"movement"`
	Duration int    `json:"duration"` // seconds
	Axes     []Axis `json:"axes"`     // 1 or 2 contributing axes
}

// Validate checks the round configuration.
func (r Round) Validate() error {
	if r.Duration <= 0 {
		return fmt.Errorf("round duration must be positive, got %d", r.Duration)
	}
	if len(r.Axes) < 1 || len(r.Axes) > 2 {
		return fmt.Errorf("round must configure 1 or 2 axes, got %d", len(r.Axes))
	}
	for _, a := range r.Axes {
		if !a.Valid() {
			return fmt.Errorf("unknown axis %q", a)
		}
	}
	return nil
}

// Match is the single active or most-recent contest between two wristbands.
// Slot A and slot B are positional labels; they carry no hardware meaning.
type Match struct {
	ID           string     `json:"id"`
	Status       Phase      `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	Rounds       [2]Round   `json:"rounds"`
	CurrentRound int        `json:"current_round"` // 0 or 1
	RoundStart   int64      `json:"round_start"`   // unix millis; 0 outside active phases
	BandIDs      [2]string  `json:"band_ids"`      // indexed by Slot
	AutoUnlink   bool       `json:"auto_unlink"`
	RoundWinners [2]*Winner `json:"round_winners"`
	Winner       *Winner    `json:"winner"`
}

// NewMatch builds a waiting match with a fresh id.
func NewMatch(rounds [2]Round, bandA, bandB string, autoUnlink bool) (Match, error) {
	for i, r := range rounds {
		if err := r.Validate(); err != nil {
			return Match{}, fmt.Errorf("round %d: %w", i+1, err)
		}
	}
	if bandA == "" || bandB == "" {
		return Match{}, fmt.Errorf("both wristband ids are required")
	}
	if bandA == bandB {
		return Match{}, fmt.Errorf("wristband %s cannot occupy both slots", bandA)
	}
	return Match{
		ID:        uuid.NewString(),
		Status:    PhaseWaiting,
		CreatedAt: time.Now().UTC(),
		Rounds:    rounds,
		BandIDs:   [2]string{bandA, bandB},
		AutoUnlink: autoUnlink,
	}, nil
}

// CurrentRoundConfig returns the configuration of the round in play.
func (m *Match) CurrentRoundConfig() Round {
	if m.CurrentRound < 0 || m.CurrentRound > 1 {
		return m.Rounds[0]
	}
	return m.Rounds[m.CurrentRound]
}

// Terminal reports whether the match has concluded.
func (m *Match) Terminal() bool { return m.Status.Terminal() }

// InProgress reports whether the match blocks creation of a new one.
func (m *Match) InProgress() bool { return m.Status.InProgress() }

// Remaining computes the time left in the current active round from the
// authoritative round start. It is non-negative.
func (m *Match) Remaining(now time.Time) time.Duration {
	if m.RoundStart == 0 {
		return time.Duration(m.CurrentRoundConfig().Duration) * time.Second
	}
	start := time.UnixMilli(m.RoundStart)
	left := time.Duration(m.CurrentRoundConfig().Duration)*time.Second - now.Sub(start)
	if left < 0 {
		return 0
	}
	return left
}

// Clone returns a deep copy safe to hand to subscribers.
func (m *Match) Clone() Match {
	out := *m
	for i := range m.Rounds {
		out.Rounds[i].Axes = append([]Axis(nil), m.Rounds[i].Axes...)
	}
	for i, w := range m.RoundWinners {
		if w != nil {
			v := *w
			out.RoundWinners[i] = &v
		}
	}
	if m.Winner != nil {
		v := *m.Winner
		out.Winner = &v
	}
	return out
}
