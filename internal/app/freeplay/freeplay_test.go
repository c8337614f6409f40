package freeplay_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/arenalabs/motionduel/internal/adapters/bandctl"
	"github.com/arenalabs/motionduel/internal/adapters/ledger"
	"github.com/arenalabs/motionduel/internal/app/freeplay"
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

type fixedReader struct {
	mu      sync.Mutex
	samples map[string]scoring.Sample
}

func (f *fixedReader) Scores(_ context.Context, bandID string) (scoring.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.samples[bandID], nil
}

type noopController struct{}

func (noopController) StartCapture(_ context.Context, ids []string) bandctl.BatchResult {
	return bandctl.BatchResult{Succeeded: ids}
}

func (noopController) StopCapture(_ context.Context, ids []string) bandctl.BatchResult {
	return bandctl.BatchResult{Succeeded: ids}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a manager over linked wristbands", t, func() {
		lg := ledger.NewInMemoryLedger()
		So(lg.Link(ctx, "010", ledger.Identity{ID: "u1", Name: "Ana"}), ShouldBeNil)
		So(lg.Link(ctx, "020", ledger.Identity{ID: "u2", Name: "Bia"}), ShouldBeNil)

		reader := &fixedReader{samples: map[string]scoring.Sample{
			"010": {X: 1.0, Y: 2.0},
		}}
		m := freeplay.NewManager(reader, noopController{}, lg,
			freeplay.WithTick(5*time.Millisecond))

		Convey("a session accumulates samples and credits movers on stop", func() {
			s, err := m.Start(ctx, []string{"010", "020"}, nil)
			So(err, ShouldBeNil)
			So(s.ID, ShouldNotBeEmpty)
			So(s.Axes, ShouldResemble, []model.Axis{model.AxisX, model.AxisY, model.AxisZ})

			time.Sleep(60 * time.Millisecond)
			res, err := m.Stop(ctx)
			So(err, ShouldBeNil)
			So(res.Samples, ShouldBeGreaterThan, 0)
			So(res.Totals["010"], ShouldBeGreaterThan, 0)
			So(res.Totals["020"], ShouldEqual, 0)

			Convey("only the moving band is credited", func() {
				So(res.Credited, ShouldContainKey, "010")
				So(res.Credited, ShouldNotContainKey, "020")

				ana, _ := lg.ResolveIdentity(ctx, "010")
				So(ana.Points, ShouldEqual, res.Credited["010"])
				bia, _ := lg.ResolveIdentity(ctx, "020")
				So(bia.Points, ShouldEqual, 0)
			})
		})

		Convey("only one session may run at a time", func() {
			_, err := m.Start(ctx, []string{"010"}, nil)
			So(err, ShouldBeNil)

			_, err = m.Start(ctx, []string{"020"}, nil)
			So(errors.Is(err, freeplay.ErrSessionActive), ShouldBeTrue)

			_, err = m.Stop(ctx)
			So(err, ShouldBeNil)
			_, err = m.Start(ctx, []string{"020"}, nil)
			So(err, ShouldBeNil)
			_, _ = m.Stop(ctx)
		})

		Convey("Active reports the running session and its totals", func() {
			_, _, ok := m.Active()
			So(ok, ShouldBeFalse)

			_, err := m.Start(ctx, []string{"010"}, []model.Axis{model.AxisX})
			So(err, ShouldBeNil)
			time.Sleep(30 * time.Millisecond)

			info, totals, ok := m.Active()
			So(ok, ShouldBeTrue)
			So(info.BandIDs, ShouldResemble, []string{"010"})
			So(totals, ShouldContainKey, "010")
			_, _ = m.Stop(ctx)
		})

		Convey("input validation", func() {
			_, err := m.Start(ctx, nil, nil)
			So(errors.Is(err, freeplay.ErrNoBands), ShouldBeTrue)

			_, err = m.Start(ctx, []string{"010"}, []model.Axis{"W"})
			So(errors.Is(err, freeplay.ErrInvalidAxes), ShouldBeTrue)

			_, err = m.Stop(ctx)
			So(errors.Is(err, freeplay.ErrNoSession), ShouldBeTrue)
		})
	})
}
