package freeplay

import (
	"time"

	"github.com/arenalabs/motionduel/pkg/logger"
)

// Option configures the manager.
type Option func(*Manager)

// WithTick sets the sampling cadence.
func WithTick(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.tick = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) { m.log = l }
}
