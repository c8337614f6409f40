// Package orchestrator drives a match through its lifecycle: it watches the
// shared match record, advances phases on timers, publishes live score frames,
// and settles each round exactly once.
//
// All decisions run on a single goroutine fed by an event channel. Timers and
// slow I/O (telemetry readouts, capture commands, ledger settlement) post
// their results back as events instead of mutating state directly, so there
// is exactly one writer and no locks around the driver state.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/arenalabs/motionduel/internal/adapters/bandctl"
	"github.com/arenalabs/motionduel/internal/adapters/ledger"
	"github.com/arenalabs/motionduel/internal/adapters/matchstore"
	"github.com/arenalabs/motionduel/internal/adapters/telemetry"
	"github.com/arenalabs/motionduel/internal/domain/model"
	"github.com/arenalabs/motionduel/internal/domain/scoring"
	"github.com/arenalabs/motionduel/pkg/logger"
	"github.com/arenalabs/motionduel/pkg/metrics"
)

type eventKind int

const (
	evStoreChange eventKind = iota
	evTimer
	evLiveScores
	evRoundSettled
	evLeaderboard
)

type timerKind int

const (
	tKickoff timerKind = iota
	tIntroDone
	tCountdownTick
	tRoundCheck
	tLiveTick
	tInterRound
	tReveal
)

type event struct {
	kind  eventKind
	gen   uint64
	match *model.Match

	timer timerKind
	round int

	points  [2]int
	entries []ledger.Entry
}

// Orchestrator is the single match driver.
type Orchestrator struct {
	store  matchstore.Store
	scores telemetry.Reader
	bands  bandctl.Controller
	ledger ledger.Ledger

	timing          Timing
	leaderboardSize int
	log             logger.Logger
	now             func() time.Time

	events      chan event
	feed        *feed
	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
	stopOnce    sync.Once

	// Driver state below is owned by the run goroutine.
	tracked     *model.Match
	phase       model.Phase
	gen         uint64
	countdown   int
	live        [2]int
	roundPoints [2][2]int // settled totals, indexed [round][slot]
	settled     [2]bool
	closing     bool
	concluded   bool
	leaderboard []ledger.Entry
}

// New builds an orchestrator over the given adapters.
func New(store matchstore.Store, scores telemetry.Reader, bands bandctl.Controller, lg ledger.Ledger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:           store,
		scores:          scores,
		bands:           bands,
		ledger:          lg,
		timing:          DefaultTiming(),
		leaderboardSize: 10,
		log:             logger.Get().Named("orchestrator"),
		now:             time.Now,
		events:          make(chan event, 256),
		feed:            newFeed(),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start subscribes to the match record and launches the driver loop.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	o.unsubscribe = o.store.Subscribe(func(m *model.Match) {
		o.post(event{kind: evStoreChange, match: m})
	})
	go o.run(ctx)
}

// Stop halts the driver loop. In-flight settlement completes its ledger
// writes but the loop no longer reacts to anything.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		if o.unsubscribe != nil {
			o.unsubscribe()
		}
		if o.cancel != nil {
			o.cancel()
		}
		close(o.done)
	})
}

// SubscribeFrames registers a display consumer.
func (o *Orchestrator) SubscribeFrames(fn func(Frame)) func() {
	return o.feed.subscribe(fn)
}

// post never blocks the caller; the loop owns the channel's drain.
func (o *Orchestrator) post(ev event) {
	select {
	case o.events <- ev:
	case <-o.done:
	}
}

func (o *Orchestrator) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.done:
			return
		case ev := <-o.events:
			switch ev.kind {
			case evStoreChange:
				o.onStoreChange(ctx, ev.match)
			case evTimer:
				if ev.gen != o.gen {
					continue // a newer match superseded this timer
				}
				o.onTimer(ctx, ev)
			case evLiveScores:
				if ev.gen != o.gen {
					continue
				}
				o.onLiveScores(ev)
			case evRoundSettled:
				if ev.gen != o.gen {
					continue
				}
				o.onRoundSettled(ctx, ev)
			case evLeaderboard:
				if ev.gen != o.gen {
					continue
				}
				o.leaderboard = ev.entries
				o.publishFrame()
			}
		}
	}
}

// schedule arms a one-shot timer bound to the current match generation.
func (o *Orchestrator) schedule(kind timerKind, round int, d time.Duration) {
	gen := o.gen
	time.AfterFunc(d, func() {
		o.post(event{kind: evTimer, gen: gen, timer: kind, round: round})
	})
}

func (o *Orchestrator) onStoreChange(ctx context.Context, m *model.Match) {
	if m == nil {
		o.resetState(nil)
		o.publishFrame()
		return
	}

	fresh := o.tracked == nil || o.tracked.ID != m.ID
	if fresh {
		o.resetState(m)
	} else {
		o.tracked = m
	}

	phaseChanged := fresh || o.phase != m.Status
	o.phase = m.Status
	if !phaseChanged {
		o.publishFrame()
		return
	}

	switch {
	case m.Status == model.PhaseWaiting:
		o.schedule(tKickoff, 0, o.timing.Kickoff)

	case m.Status == model.IntroPhase(m.CurrentRound):
		o.schedule(tIntroDone, m.CurrentRound, o.timing.IntroDwell)

	case m.Status.Countdown():
		o.countdown = o.timing.CountdownTicks
		o.schedule(tCountdownTick, m.CurrentRound, o.timing.CountdownTick)

	case m.Status.Active():
		// Covers both the normal entry and an attach to a match already
		// in flight: a round past its duration settles immediately.
		o.live = [2]int{}
		if m.Remaining(o.now()) <= 0 {
			o.beginCloseout(ctx, m.CurrentRound)
		} else {
			o.schedule(tRoundCheck, m.CurrentRound, o.timing.RoundCheck)
			o.schedule(tLiveTick, m.CurrentRound, o.timing.LiveTick)
		}

	case m.Status.Terminal():
		o.schedule(tReveal, 0, o.timing.LeaderboardReveal)
	}

	o.publishFrame()
}

// resetState rebinds the driver to a new (or no) match. Bumping the
// generation invalidates every outstanding timer and in-flight readout.
func (o *Orchestrator) resetState(m *model.Match) {
	o.gen++
	o.tracked = m
	o.phase = ""
	o.countdown = 0
	o.live = [2]int{}
	o.roundPoints = [2][2]int{}
	o.settled = [2]bool{}
	o.closing = false
	o.concluded = false
	o.leaderboard = nil
	if m != nil {
		o.log.Info(context.Background(), "tracking match",
			logger.String("match", m.ID),
			logger.String("band_a", m.BandIDs[model.SlotA]),
			logger.String("band_b", m.BandIDs[model.SlotB]),
		)
	}
}

func (o *Orchestrator) onTimer(ctx context.Context, ev event) {
	m := o.tracked
	if m == nil {
		return
	}

	switch ev.timer {
	case tKickoff:
		if m.Status != model.PhaseWaiting {
			return
		}
		o.patch(ctx, kickoffPatch())

	case tIntroDone:
		if m.Status != model.IntroPhase(ev.round) {
			return
		}
		o.patch(ctx, countdownPatch(ev.round))

	case tCountdownTick:
		if !m.Status.Countdown() || m.CurrentRound != ev.round {
			return
		}
		o.countdown--
		if o.countdown > 0 {
			o.publishFrame()
			o.schedule(tCountdownTick, ev.round, o.timing.CountdownTick)
			return
		}
		o.startRound(ctx, ev.round)

	case tRoundCheck:
		if !m.Status.Active() || m.CurrentRound != ev.round || o.closing || o.settled[ev.round] {
			return
		}
		if m.Remaining(o.now()) <= 0 {
			o.beginCloseout(ctx, ev.round)
			return
		}
		o.schedule(tRoundCheck, ev.round, o.timing.RoundCheck)

	case tLiveTick:
		if !m.Status.Active() || m.CurrentRound != ev.round || o.closing || o.settled[ev.round] {
			return
		}
		o.readLive(ctx, ev.round)
		o.schedule(tLiveTick, ev.round, o.timing.LiveTick)

	case tInterRound:
		if m.Status != model.ActivePhase(0) || !o.settled[0] {
			return
		}
		o.patch(ctx, interRoundPatch())

	case tReveal:
		if !m.Terminal() {
			return
		}
		o.fetchLeaderboard(ctx)
	}
}

// startRound stamps the authoritative round start and switches the bands on.
// The capture command is best effort: a band that misses it reads zero.
func (o *Orchestrator) startRound(ctx context.Context, round int) {
	o.patch(ctx, roundStartPatch(round, o.now()))

	bands := o.tracked.BandIDs
	go func() {
		res := o.bands.StartCapture(ctx, bands[:])
		if !res.AllOK() {
			o.log.Warn(ctx, "start capture incomplete",
				logger.Int("round", round+1),
				logger.Any("failed", res.Failed),
			)
		}
	}()
}

// readLive fires a non-blocking readout of both bands for the display.
func (o *Orchestrator) readLive(ctx context.Context, round int) {
	m := o.tracked
	gen := o.gen
	axes := m.CurrentRoundConfig().Axes
	bands := m.BandIDs

	go func() {
		var pts [2]int
		var wg sync.WaitGroup
		for slot := range bands {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				sample, err := o.scores.Scores(ctx, bands[slot])
				if err != nil {
					o.log.Debug(ctx, "live readout failed",
						logger.String("band", bands[slot]), logger.Error(err))
				}
				pts[slot] = scoring.RoundPoints(sample, axes)
			}(slot)
		}
		wg.Wait()
		o.post(event{kind: evLiveScores, gen: gen, round: round, points: pts})
	}()
}

func (o *Orchestrator) onLiveScores(ev event) {
	if o.closing || o.tracked == nil || !o.tracked.Status.Active() || o.settled[ev.round] {
		return
	}
	o.live = ev.points
	o.publishFrame()
}

// beginCloseout runs the settlement readout off the loop: capture off, a
// short settle delay so the last samples land, then one final readout per
// band. The guard makes the round check and a late attach race harmless.
func (o *Orchestrator) beginCloseout(ctx context.Context, round int) {
	if o.closing || o.settled[round] {
		return
	}
	o.closing = true

	m := o.tracked
	gen := o.gen
	axes := m.Rounds[round].Axes
	bands := m.BandIDs

	go func() {
		if res := o.bands.StopCapture(ctx, bands[:]); !res.AllOK() {
			o.log.Warn(ctx, "stop capture incomplete",
				logger.Int("round", round+1),
				logger.Any("failed", res.Failed),
			)
		}

		select {
		case <-time.After(o.timing.SettleDelay):
		case <-ctx.Done():
			return
		}

		var pts [2]int
		var wg sync.WaitGroup
		for slot := range bands {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				sample, err := o.scores.Scores(ctx, bands[slot])
				if err != nil {
					o.log.Warn(ctx, "final readout failed, band scores zero",
						logger.String("band", bands[slot]), logger.Error(err))
				}
				pts[slot] = scoring.RoundPoints(sample, axes)
			}(slot)
		}
		wg.Wait()

		o.post(event{kind: evRoundSettled, gen: gen, round: round, points: pts})
	}()
}

func (o *Orchestrator) onRoundSettled(ctx context.Context, ev event) {
	o.closing = false
	if o.settled[ev.round] {
		return
	}
	o.settled[ev.round] = true
	o.roundPoints[ev.round] = ev.points
	metrics.RecordRoundSettled()

	a, b := ev.points[model.SlotA], ev.points[model.SlotB]
	o.patch(ctx, roundResultPatch(ev.round, a, b))
	o.log.Info(ctx, "round settled",
		logger.Int("round", ev.round+1),
		logger.Int("points_a", a),
		logger.Int("points_b", b),
		logger.String("winner", string(scoring.Decide(a, b))),
	)

	if ev.round == 0 {
		o.live = ev.points
		o.publishFrame()
		o.schedule(tInterRound, 0, o.timing.InterRoundDelay)
		return
	}
	o.concludeMatch(ctx)
}

// concludeMatch commits the terminal transition and the ledger side effects.
// The concluded latch makes the whole block run at most once per match, no
// matter how often the finished record is re-observed.
func (o *Orchestrator) concludeMatch(ctx context.Context) {
	if o.concluded {
		return
	}
	o.concluded = true

	m := o.tracked
	totals := [2]int{
		o.roundPoints[0][model.SlotA] + o.roundPoints[1][model.SlotA],
		o.roundPoints[0][model.SlotB] + o.roundPoints[1][model.SlotB],
	}
	plan := planSettlement(m, totals)

	o.live = totals
	o.patch(ctx, finishPatch(plan.Winner))
	metrics.RecordMatchFinished(string(plan.Winner))
	o.log.Info(ctx, "match finished",
		logger.String("match", m.ID),
		logger.Int("total_a", totals[model.SlotA]),
		logger.Int("total_b", totals[model.SlotB]),
		logger.String("winner", string(plan.Winner)),
	)

	matchID := m.ID
	go o.settle(ctx, matchID, plan)
}

// settle applies the ledger plan. Each write is independent: a failed credit
// for one band never blocks the other's, it is logged and counted instead.
func (o *Orchestrator) settle(ctx context.Context, matchID string, plan settlementPlan) {
	if plan.WinnerBand != "" {
		if id, ok := o.ledger.ResolveIdentity(ctx, plan.WinnerBand); ok {
			if err := o.ledger.CreditVictory(ctx, id.ID, matchID); err != nil {
				metrics.RecordSettlementError()
				o.log.Error(ctx, "victory credit failed",
					logger.String("band", plan.WinnerBand), logger.Error(err))
			}
		} else {
			o.log.Warn(ctx, "winner wristband is not linked, victory unassigned",
				logger.String("band", plan.WinnerBand))
		}
	}

	for _, c := range plan.Credits {
		if err := o.ledger.CreditPoints(ctx, c.BandID, c.Amount, c.Reason); err != nil {
			metrics.RecordSettlementError()
			o.log.Error(ctx, "point credit failed",
				logger.String("band", c.BandID),
				logger.Int("amount", c.Amount),
				logger.Error(err),
			)
		}
	}

	for _, band := range plan.Unlink {
		if err := o.ledger.Unlink(ctx, band); err != nil {
			o.log.Warn(ctx, "auto unlink failed",
				logger.String("band", band), logger.Error(err))
		}
	}
}

// fetchLeaderboard pulls the reveal ranking off the loop.
func (o *Orchestrator) fetchLeaderboard(ctx context.Context) {
	gen := o.gen
	go func() {
		entries := o.ledger.TopByVictories(ctx, o.leaderboardSize)
		o.post(event{kind: evLeaderboard, gen: gen, entries: entries})
	}()
}

func (o *Orchestrator) patch(ctx context.Context, p matchstore.Patch) {
	if err := o.store.Patch(ctx, p); err != nil {
		o.log.Error(ctx, "match patch failed", logger.Error(err))
	}
}

func (o *Orchestrator) publishFrame() {
	m := o.tracked
	if m == nil {
		o.feed.publish(Frame{})
		return
	}

	fr := Frame{
		MatchID:      m.ID,
		Phase:        m.Status,
		Round:        m.CurrentRound,
		Movement:     m.CurrentRoundConfig().Movement,
		Points:       o.live,
		BandIDs:      m.BandIDs,
		RoundWinners: m.RoundWinners,
		Winner:       m.Winner,
		Leaderboard:  o.leaderboard,
	}
	if m.Status.Countdown() {
		fr.Countdown = o.countdown
	}
	if m.Status.Active() {
		fr.RemainingSec = int(m.Remaining(o.now()).Round(time.Second).Seconds())
	}
	o.feed.publish(fr)
}
