package matchstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arenalabs/motionduel/internal/adapters/matchstore"
	"github.com/arenalabs/motionduel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func newMatch(t *testing.T) model.Match {
	t.Helper()
	m, err := model.NewMatch([2]model.Round{
		{Movement: "jumps", Duration: 60, Axes: []model.Axis{model.AxisY}},
		{Movement: "steps", Duration: 30, Axes: []model.Axis{model.AxisX, model.AxisZ}},
	}, "010", "020", false)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCreateExclusion(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		store := matchstore.NewInMemoryStore()

		Convey("the first create succeeds", func() {
			So(store.Create(ctx, newMatch(t)), ShouldBeNil)

			Convey("a waiting match may be replaced", func() {
				So(store.Create(ctx, newMatch(t)), ShouldBeNil)
			})

			Convey("an in-progress match blocks creation", func() {
				status := model.PhaseRound1Active
				So(store.Patch(ctx, matchstore.Patch{Status: &status}), ShouldBeNil)

				err := store.Create(ctx, newMatch(t))
				So(errors.Is(err, matchstore.ErrMatchInProgress), ShouldBeTrue)
			})

			Convey("a finished match may be replaced", func() {
				status := model.PhaseFinished
				So(store.Patch(ctx, matchstore.Patch{Status: &status}), ShouldBeNil)
				So(store.Create(ctx, newMatch(t)), ShouldBeNil)
			})
		})
	})
}

func TestPatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store holding a match", t, func() {
		store := matchstore.NewInMemoryStore()
		So(store.Create(ctx, newMatch(t)), ShouldBeNil)

		Convey("patching an empty store fails", func() {
			empty := matchstore.NewInMemoryStore()
			err := empty.Patch(ctx, matchstore.Patch{})
			So(errors.Is(err, matchstore.ErrNoMatch), ShouldBeTrue)
		})

		Convey("fields update atomically and bump the version", func() {
			before := store.Version()
			status := model.PhaseRound1Active
			start := time.Now().UnixMilli()
			So(store.Patch(ctx, matchstore.Patch{Status: &status, RoundStart: &start}), ShouldBeNil)

			got, ok := store.Current(ctx)
			So(ok, ShouldBeTrue)
			So(got.Status, ShouldEqual, model.PhaseRound1Active)
			So(got.RoundStart, ShouldEqual, start)
			So(store.Version(), ShouldBeGreaterThan, before)
		})

		Convey("round winners persist per round", func() {
			So(store.Patch(ctx, matchstore.Patch{
				RoundResult: &matchstore.RoundResult{Round: 0, Winner: model.WinnerSlotA},
			}), ShouldBeNil)

			got, _ := store.Current(ctx)
			So(got.RoundWinners[0], ShouldNotBeNil)
			So(*got.RoundWinners[0], ShouldEqual, model.WinnerSlotA)
			So(got.RoundWinners[1], ShouldBeNil)
		})

		Convey("the round index may only advance", func() {
			one := 1
			So(store.Patch(ctx, matchstore.Patch{CurrentRound: &one}), ShouldBeNil)

			zero := 0
			err := store.Patch(ctx, matchstore.Patch{CurrentRound: &zero})
			So(errors.Is(err, matchstore.ErrRoundRegression), ShouldBeTrue)
		})
	})
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with a subscriber", t, func() {
		store := matchstore.NewInMemoryStore()

		var seen []*model.Match
		unsubscribe := store.Subscribe(func(m *model.Match) {
			seen = append(seen, m)
		})

		Convey("subscription fires immediately with the current state", func() {
			So(len(seen), ShouldEqual, 1)
			So(seen[0], ShouldBeNil)
		})

		Convey("mutations notify with independent snapshots", func() {
			So(store.Create(ctx, newMatch(t)), ShouldBeNil)
			So(len(seen), ShouldEqual, 2)
			So(seen[1], ShouldNotBeNil)

			// Mutating the delivered snapshot must not touch the store.
			seen[1].Status = model.PhaseFinished
			got, _ := store.Current(ctx)
			So(got.Status, ShouldEqual, model.PhaseWaiting)
		})

		Convey("clearing notifies with nil", func() {
			So(store.Create(ctx, newMatch(t)), ShouldBeNil)
			store.Clear(ctx)
			So(seen[len(seen)-1], ShouldBeNil)

			_, ok := store.Current(ctx)
			So(ok, ShouldBeFalse)
		})

		Convey("unsubscribe stops delivery", func() {
			unsubscribe()
			So(store.Create(ctx, newMatch(t)), ShouldBeNil)
			So(len(seen), ShouldEqual, 1)
		})
	})
}
