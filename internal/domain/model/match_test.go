package model_test

import (
	"testing"
	"time"

	"github.com/arenalabs/motionduel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func twoRounds() [2]model.Round {
	return [2]model.Round{
		{Movement: "vertical jumps", Duration: 60, Axes: []model.Axis{model.AxisY}},
		{Movement: "side steps", Duration: 30, Axes: []model.Axis{model.AxisX, model.AxisZ}},
	}
}

func TestNewMatch(t *testing.T) {
	Convey("Given two valid round configurations", t, func() {
		Convey("NewMatch builds a waiting match with a unique id", func() {
			m1, err := model.NewMatch(twoRounds(), "010", "020", true)
			So(err, ShouldBeNil)
			So(m1.ID, ShouldNotBeEmpty)
			So(m1.Status, ShouldEqual, model.PhaseWaiting)
			So(m1.CurrentRound, ShouldEqual, 0)
			So(m1.AutoUnlink, ShouldBeTrue)
			So(m1.BandIDs[model.SlotA], ShouldEqual, "010")
			So(m1.BandIDs[model.SlotB], ShouldEqual, "020")

			m2, err := model.NewMatch(twoRounds(), "010", "020", false)
			So(err, ShouldBeNil)
			So(m2.ID, ShouldNotEqual, m1.ID)
		})

		Convey("a band cannot occupy both slots", func() {
			_, err := model.NewMatch(twoRounds(), "010", "010", false)
			So(err, ShouldNotBeNil)
		})

		Convey("missing band ids are rejected", func() {
			_, err := model.NewMatch(twoRounds(), "", "020", false)
			So(err, ShouldNotBeNil)
		})

		Convey("invalid rounds are rejected", func() {
			rounds := twoRounds()
			rounds[1].Axes = nil
			_, err := model.NewMatch(rounds, "010", "020", false)
			So(err, ShouldNotBeNil)

			rounds = twoRounds()
			rounds[0].Duration = 0
			_, err = model.NewMatch(rounds, "010", "020", false)
			So(err, ShouldNotBeNil)

			rounds = twoRounds()
			rounds[0].Axes = []model.Axis{"Q"}
			_, err = model.NewMatch(rounds, "010", "020", false)
			So(err, ShouldNotBeNil)

			rounds = twoRounds()
			rounds[0].Axes = []model.Axis{model.AxisX, model.AxisY, model.AxisZ}
			_, err = model.NewMatch(rounds, "010", "020", false)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPhase(t *testing.T) {
	Convey("Phase classification", t, func() {
		Convey("terminal and in-progress states", func() {
			So(model.PhaseFinished.Terminal(), ShouldBeTrue)
			So(model.PhaseWaiting.Terminal(), ShouldBeFalse)
			So(model.PhaseWaiting.InProgress(), ShouldBeFalse)
			So(model.PhaseFinished.InProgress(), ShouldBeFalse)
			So(model.PhaseRound1Intro.InProgress(), ShouldBeTrue)
			So(model.PhaseRound2Active.InProgress(), ShouldBeTrue)
		})

		Convey("round index extraction", func() {
			So(model.PhaseRound1Countdown.Round(), ShouldEqual, 0)
			So(model.PhaseRound2Intro.Round(), ShouldEqual, 1)
			So(model.PhaseWaiting.Round(), ShouldEqual, -1)
			So(model.PhaseFinished.Round(), ShouldEqual, -1)
		})

		Convey("phase constructors round-trip", func() {
			for _, round := range []int{0, 1} {
				So(model.IntroPhase(round).Round(), ShouldEqual, round)
				So(model.CountdownPhase(round).Countdown(), ShouldBeTrue)
				So(model.ActivePhase(round).Active(), ShouldBeTrue)
			}
		})
	})
}

func TestRemaining(t *testing.T) {
	Convey("Given an active match with a recorded round start", t, func() {
		m, err := model.NewMatch(twoRounds(), "010", "020", false)
		So(err, ShouldBeNil)
		m.Status = model.PhaseRound1Active

		now := time.Now()
		m.RoundStart = now.Add(-20 * time.Second).UnixMilli()

		Convey("remaining time is duration minus elapsed", func() {
			So(m.Remaining(now), ShouldEqual, 40*time.Second)
		})

		Convey("remaining time floors at zero after the round elapsed", func() {
			So(m.Remaining(now.Add(2*time.Minute)), ShouldEqual, 0)
		})

		Convey("an unset round start yields the full duration", func() {
			m.RoundStart = 0
			So(m.Remaining(now), ShouldEqual, 60*time.Second)
		})
	})
}

func TestClone(t *testing.T) {
	Convey("Given a match with winners recorded", t, func() {
		m, err := model.NewMatch(twoRounds(), "010", "020", false)
		So(err, ShouldBeNil)
		w := model.WinnerSlotA
		m.RoundWinners[0] = &w
		m.Winner = &w

		clone := m.Clone()

		Convey("the clone shares no pointers with the original", func() {
			*clone.RoundWinners[0] = model.WinnerTie
			*clone.Winner = model.WinnerTie
			clone.Rounds[0].Axes[0] = model.AxisZ

			So(*m.RoundWinners[0], ShouldEqual, model.WinnerSlotA)
			So(*m.Winner, ShouldEqual, model.WinnerSlotA)
			So(m.Rounds[0].Axes[0], ShouldEqual, model.AxisY)
		})
	})
}
