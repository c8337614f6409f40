// Package scoring holds the settlement math shared by match closeout, live
// display updates, and ad-hoc capture sessions.
package scoring

import (
	"math"

	"github.com/arenalabs/motionduel/internal/domain/model"
)

// Sample is one post-multiplier telemetry readout for a wristband. A missing
// axis reads as zero; a disconnected band therefore scores zero, never errors.
type Sample struct {
	X float64
	Y float64
	Z float64
}

// Axis returns the magnitude of a single axis.
func (s Sample) Axis(a model.Axis) float64 {
	switch a {
	case model.AxisX:
		return s.X
	case model.AxisY:
		return s.Y
	case model.AxisZ:
		return s.Z
	}
	return 0
}

// RoundPoints reduces a single closeout sample to points over the configured
// axes: round(sum of absolute magnitudes). The result is never negative.
func RoundPoints(s Sample, axes []model.Axis) int {
	var total float64
	for _, a := range axes {
		total += math.Abs(s.Axis(a))
	}
	return int(math.Round(total))
}

// Decide applies the uniform tie-break rule: strictly greater total wins,
// equal totals are a tie. There is no secondary criterion.
func Decide(a, b int) model.Winner {
	switch {
	case a > b:
		return model.WinnerSlotA
	case b > a:
		return model.WinnerSlotB
	}
	return model.WinnerTie
}

// Accumulator sums absolute per-axis magnitudes over many samples. It backs
// the ad-hoc capture mode, where points accrue across periodic readouts
// instead of a single closeout reading.
type Accumulator struct {
	x, y, z float64
	samples int
}

// Add folds one sample into the running totals.
func (c *Accumulator) Add(s Sample) {
	c.x += math.Abs(s.X)
	c.y += math.Abs(s.Y)
	c.z += math.Abs(s.Z)
	c.samples++
}

// Samples returns how many readouts were folded in.
func (c *Accumulator) Samples() int { return c.samples }

// Points rounds the accumulated magnitude over the given axes.
func (c *Accumulator) Points(axes []model.Axis) int {
	var total float64
	for _, a := range axes {
		switch a {
		case model.AxisX:
			total += c.x
		case model.AxisY:
			total += c.y
		case model.AxisZ:
			total += c.z
		}
	}
	return int(math.Round(total))
}

// Total rounds the accumulated magnitude over all three axes.
func (c *Accumulator) Total() int {
	return int(math.Round(c.x + c.y + c.z))
}
