package orchestrator_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/arenalabs/motionduel/internal/adapters/bandctl"
	"github.com/arenalabs/motionduel/internal/adapters/ledger"
	"github.com/arenalabs/motionduel/internal/adapters/matchstore"
	"github.com/arenalabs/motionduel/internal/app/orchestrator"
	"github.com/arenalabs/motionduel/internal/domain/model"
	"github.com/arenalabs/motionduel/internal/domain/scoring"
	"github.com/arenalabs/motionduel/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeReader serves samples from a swappable table.
type fakeReader struct {
	mu      sync.Mutex
	samples map[string]scoring.Sample
}

func (f *fakeReader) set(samples map[string]scoring.Sample) {
	f.mu.Lock()
	f.samples = samples
	f.mu.Unlock()
}

func (f *fakeReader) Scores(_ context.Context, bandID string) (scoring.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.samples[bandID], nil
}

// fakeController counts capture commands.
type fakeController struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (f *fakeController) StartCapture(_ context.Context, bandIDs []string) bandctl.BatchResult {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()
	return bandctl.BatchResult{Succeeded: bandIDs}
}

func (f *fakeController) StopCapture(_ context.Context, bandIDs []string) bandctl.BatchResult {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return bandctl.BatchResult{Succeeded: bandIDs}
}

func (f *fakeController) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

func fastTiming() orchestrator.Timing {
	return orchestrator.Timing{
		Kickoff:           5 * time.Millisecond,
		IntroDwell:        10 * time.Millisecond,
		CountdownTick:     5 * time.Millisecond,
		CountdownTicks:    2,
		RoundCheck:        5 * time.Millisecond,
		LiveTick:          5 * time.Millisecond,
		SettleDelay:       5 * time.Millisecond,
		InterRoundDelay:   10 * time.Millisecond,
		LeaderboardReveal: 10 * time.Millisecond,
	}
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func testRounds() [2]model.Round {
	return [2]model.Round{
		{Movement: "jump", Duration: 1, Axes: []model.Axis{model.AxisY}},
		{Movement: "wave", Duration: 1, Axes: []model.Axis{model.AxisX, model.AxisZ}},
	}
}

func TestFullMatchLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given two linked wristbands and a running driver", t, func() {
		store := matchstore.NewInMemoryStore()
		lg := ledger.NewInMemoryLedger()
		So(lg.Link(ctx, "010", ledger.Identity{ID: "u1", Name: "Ana"}), ShouldBeNil)
		So(lg.Link(ctx, "020", ledger.Identity{ID: "u2", Name: "Bia"}), ShouldBeNil)

		reader := &fakeReader{}
		reader.set(map[string]scoring.Sample{
			"010": {Y: 12.3},
			"020": {Y: 8.9},
		})
		ctl := &fakeController{}

		// Swap in the second round's motion once the record advances.
		unsub := store.Subscribe(func(m *model.Match) {
			if m != nil && m.CurrentRound == 1 {
				reader.set(map[string]scoring.Sample{
					"010": {X: 1.2, Z: 2.1},
					"020": {X: 4.4, Z: 4.3},
				})
			}
		})
		defer unsub()

		var mu sync.Mutex
		var phases []model.Phase
		var sawLeaderboard bool

		o := orchestrator.New(store, reader, ctl, lg,
			orchestrator.WithTiming(fastTiming()))
		defer o.Stop()
		cancel := o.SubscribeFrames(func(fr orchestrator.Frame) {
			mu.Lock()
			if len(phases) == 0 || phases[len(phases)-1] != fr.Phase {
				phases = append(phases, fr.Phase)
			}
			if len(fr.Leaderboard) > 0 {
				sawLeaderboard = true
			}
			mu.Unlock()
		})
		defer cancel()
		o.Start(ctx)

		Convey("a created match runs to a settled finish", func() {
			m, err := model.NewMatch(testRounds(), "010", "020", false)
			So(err, ShouldBeNil)
			So(store.Create(ctx, m), ShouldBeNil)

			So(waitFor(10*time.Second, func() bool {
				cur, ok := store.Current(ctx)
				return ok && cur.Terminal()
			}), ShouldBeTrue)

			final, _ := store.Current(ctx)
			So(*final.RoundWinners[0], ShouldEqual, model.WinnerSlotA) // 12 vs 9
			So(*final.RoundWinners[1], ShouldEqual, model.WinnerSlotB) // 3 vs 9
			So(*final.Winner, ShouldEqual, model.WinnerSlotB)          // 15 vs 18

			Convey("both identities are credited and the winner gets the victory", func() {
				So(waitFor(2*time.Second, func() bool {
					id, ok := lg.ResolveIdentity(ctx, "020")
					return ok && id.Victories == 1
				}), ShouldBeTrue)

				ana, _ := lg.ResolveIdentity(ctx, "010")
				bia, _ := lg.ResolveIdentity(ctx, "020")
				So(ana.Points, ShouldEqual, 15)
				So(ana.Victories, ShouldEqual, 0)
				So(bia.Points, ShouldEqual, 18)
			})

			Convey("capture was switched on and off once per round", func() {
				starts, stops := ctl.counts()
				So(starts, ShouldEqual, 2)
				So(stops, ShouldEqual, 2)
			})

			Convey("the display saw the full phase progression", func() {
				So(waitFor(2*time.Second, func() bool {
					mu.Lock()
					defer mu.Unlock()
					return sawLeaderboard
				}), ShouldBeTrue)

				mu.Lock()
				defer mu.Unlock()
				So(phases, ShouldContain, model.PhaseRound1Countdown)
				So(phases, ShouldContain, model.PhaseRound1Active)
				So(phases, ShouldContain, model.PhaseRound2Active)
				So(phases[len(phases)-1], ShouldEqual, model.PhaseFinished)
			})

			Convey("re-observing the finished record settles nothing twice", func() {
				So(waitFor(2*time.Second, func() bool {
					id, ok := lg.ResolveIdentity(ctx, "020")
					return ok && id.Points == 18
				}), ShouldBeTrue)

				status := model.PhaseFinished
				So(store.Patch(ctx, matchstore.Patch{Status: &status}), ShouldBeNil)
				time.Sleep(100 * time.Millisecond)

				bia, _ := lg.ResolveIdentity(ctx, "020")
				So(bia.Points, ShouldEqual, 18)
				So(bia.Victories, ShouldEqual, 1)
			})
		})
	})
}

func TestTieAndAutoUnlink(t *testing.T) {
	ctx := context.Background()

	Convey("Given wristbands that report no motion at all", t, func() {
		store := matchstore.NewInMemoryStore()
		lg := ledger.NewInMemoryLedger()
		So(lg.Link(ctx, "010", ledger.Identity{ID: "u1", Name: "Ana"}), ShouldBeNil)
		So(lg.Link(ctx, "020", ledger.Identity{ID: "u2", Name: "Bia"}), ShouldBeNil)

		reader := &fakeReader{}
		reader.set(map[string]scoring.Sample{})
		ctl := &fakeController{}

		o := orchestrator.New(store, reader, ctl, lg,
			orchestrator.WithTiming(fastTiming()))
		defer o.Stop()
		o.Start(ctx)

		Convey("an auto-unlink match ends in a tie and releases both bands", func() {
			m, err := model.NewMatch(testRounds(), "010", "020", true)
			So(err, ShouldBeNil)
			So(store.Create(ctx, m), ShouldBeNil)

			So(waitFor(10*time.Second, func() bool {
				cur, ok := store.Current(ctx)
				return ok && cur.Terminal()
			}), ShouldBeTrue)

			final, _ := store.Current(ctx)
			So(*final.Winner, ShouldEqual, model.WinnerTie)

			So(waitFor(2*time.Second, func() bool {
				_, linkedA := lg.ResolveIdentity(ctx, "010")
				_, linkedB := lg.ResolveIdentity(ctx, "020")
				return !linkedA && !linkedB
			}), ShouldBeTrue)

			Convey("nobody earns a victory, both get their zero credit logged", func() {
				top := lg.TopByVictories(ctx, 10)
				for _, e := range top {
					So(e.Victories, ShouldEqual, 0)
				}
				acts := lg.Activities(ctx, "u1", 0)
				var sawZero bool
				for _, a := range acts {
					if a.Type == ledger.ActivityPointsEarned && a.Points == 0 {
						sawZero = true
					}
				}
				So(sawZero, ShouldBeTrue)
			})
		})
	})
}

func TestLateAttachConvergence(t *testing.T) {
	ctx := context.Background()

	Convey("Given a match already mid-round when the driver attaches", t, func() {
		store := matchstore.NewInMemoryStore()
		lg := ledger.NewInMemoryLedger()
		So(lg.Link(ctx, "010", ledger.Identity{ID: "u1", Name: "Ana"}), ShouldBeNil)
		So(lg.Link(ctx, "020", ledger.Identity{ID: "u2", Name: "Bia"}), ShouldBeNil)

		reader := &fakeReader{}
		reader.set(map[string]scoring.Sample{
			"010": {X: 3.0, Z: 4.0},
			"020": {X: 1.0, Z: 1.0},
		})
		ctl := &fakeController{}

		m, err := model.NewMatch(testRounds(), "010", "020", false)
		So(err, ShouldBeNil)
		m.Status = model.PhaseRound2Active
		m.CurrentRound = 1
		m.RoundStart = time.Now().Add(-5 * time.Second).UnixMilli()
		So(store.Create(ctx, m), ShouldBeNil)

		var mu sync.Mutex
		var phases []model.Phase

		o := orchestrator.New(store, reader, ctl, lg,
			orchestrator.WithTiming(fastTiming()))
		defer o.Stop()
		cancel := o.SubscribeFrames(func(fr orchestrator.Frame) {
			mu.Lock()
			phases = append(phases, fr.Phase)
			mu.Unlock()
		})
		defer cancel()
		o.Start(ctx)

		Convey("the overdue round settles immediately without replaying earlier phases", func() {
			So(waitFor(10*time.Second, func() bool {
				cur, ok := store.Current(ctx)
				return ok && cur.Terminal()
			}), ShouldBeTrue)

			final, _ := store.Current(ctx)
			So(*final.RoundWinners[1], ShouldEqual, model.WinnerSlotA)
			So(*final.Winner, ShouldEqual, model.WinnerSlotA)

			mu.Lock()
			defer mu.Unlock()
			So(phases, ShouldNotContain, model.PhaseRound2Intro)
			So(phases, ShouldNotContain, model.PhaseRound2Countdown)
		})
	})
}

func TestNewMatchSupersedesTimers(t *testing.T) {
	ctx := context.Background()

	Convey("Given a finished match followed by a fresh one", t, func() {
		store := matchstore.NewInMemoryStore()
		lg := ledger.NewInMemoryLedger()
		So(lg.Link(ctx, "010", ledger.Identity{ID: "u1", Name: "Ana"}), ShouldBeNil)
		So(lg.Link(ctx, "020", ledger.Identity{ID: "u2", Name: "Bia"}), ShouldBeNil)

		reader := &fakeReader{}
		reader.set(map[string]scoring.Sample{"010": {Y: 5}})
		ctl := &fakeController{}

		o := orchestrator.New(store, reader, ctl, lg,
			orchestrator.WithTiming(fastTiming()))
		defer o.Stop()
		o.Start(ctx)

		first, err := model.NewMatch(testRounds(), "010", "020", false)
		So(err, ShouldBeNil)
		So(store.Create(ctx, first), ShouldBeNil)
		So(waitFor(10*time.Second, func() bool {
			cur, ok := store.Current(ctx)
			return ok && cur.Terminal()
		}), ShouldBeTrue)

		Convey("the second match runs cleanly after the first", func() {
			second, err := model.NewMatch(testRounds(), "010", "020", false)
			So(err, ShouldBeNil)
			So(store.Create(ctx, second), ShouldBeNil)

			So(waitFor(10*time.Second, func() bool {
				cur, ok := store.Current(ctx)
				return ok && cur.ID == second.ID && cur.Terminal()
			}), ShouldBeTrue)

			Convey("each run settled on its own", func() {
				So(waitFor(2*time.Second, func() bool {
					id, ok := lg.ResolveIdentity(ctx, "010")
					return ok && id.Victories == 2
				}), ShouldBeTrue)
			})
		})
	})
}
