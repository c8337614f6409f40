package orchestrator

import (
	"time"

	"github.com/arenalabs/motionduel/internal/adapters/matchstore"
	"github.com/arenalabs/motionduel/internal/domain/model"
	"github.com/arenalabs/motionduel/internal/domain/scoring"
)

// The driver actions below are pure: each maps the observed record and its
// inputs to the patch (or settlement plan) the driver should apply. Keeping
// them free of I/O makes every transition testable without a live store.

// kickoffPatch moves a freshly created match into the first intro.
func kickoffPatch() matchstore.Patch {
	status := model.PhaseRound1Intro
	return matchstore.Patch{Status: &status}
}

// countdownPatch moves an intro into its countdown.
func countdownPatch(round int) matchstore.Patch {
	status := model.CountdownPhase(round)
	return matchstore.Patch{Status: &status}
}

// roundStartPatch records the authoritative round start and activates the
// round. The epoch is written exactly once per round.
func roundStartPatch(round int, now time.Time) matchstore.Patch {
	status := model.ActivePhase(round)
	start := now.UnixMilli()
	return matchstore.Patch{Status: &status, RoundStart: &start}
}

// roundResultPatch persists a settled round winner.
func roundResultPatch(round int, a, b int) matchstore.Patch {
	return matchstore.Patch{
		RoundResult: &matchstore.RoundResult{Round: round, Winner: scoring.Decide(a, b)},
	}
}

// interRoundPatch advances to the second round's intro.
func interRoundPatch() matchstore.Patch {
	status := model.PhaseRound2Intro
	round := 1
	return matchstore.Patch{Status: &status, CurrentRound: &round}
}

// finishPatch is the single transition that concludes a match. Settlement
// side effects are gated behind applying this patch, never behind a tick.
func finishPatch(winner model.Winner) matchstore.Patch {
	status := model.PhaseFinished
	w := winner
	return matchstore.Patch{Status: &status, Winner: &w}
}

// credit is one planned ledger deposit.
type credit struct {
	BandID string
	Amount int
	Reason string
}

// settlementPlan is everything the driver must commit when a match ends.
type settlementPlan struct {
	Winner model.Winner

	// WinnerBand is the wristband whose identity earns the victory; empty
	// on a tie.
	WinnerBand string

	// Credits always covers both slots, zero amounts included.
	Credits [2]credit

	// Unlink lists wristbands to release, populated only with AutoUnlink.
	Unlink []string
}

// planSettlement derives the terminal outcome from both rounds' totals.
func planSettlement(m *model.Match, totals [2]int) settlementPlan {
	plan := settlementPlan{Winner: scoring.Decide(totals[model.SlotA], totals[model.SlotB])}

	switch plan.Winner {
	case model.WinnerSlotA:
		plan.WinnerBand = m.BandIDs[model.SlotA]
	case model.WinnerSlotB:
		plan.WinnerBand = m.BandIDs[model.SlotB]
	}

	for slot := model.SlotA; slot <= model.SlotB; slot++ {
		plan.Credits[slot] = credit{
			BandID: m.BandIDs[slot],
			Amount: totals[slot],
			Reason: "points earned in the motion game",
		}
	}

	if m.AutoUnlink {
		plan.Unlink = []string{m.BandIDs[model.SlotA], m.BandIDs[model.SlotB]}
	}
	return plan
}
