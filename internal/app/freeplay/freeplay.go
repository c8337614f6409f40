// Package freeplay runs ad-hoc capture sessions outside the match flow: any
// number of wristbands, points accrued by sampling the bands periodically and
// summing absolute magnitudes, credited on stop.
package freeplay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arenalabs/motionduel/internal/adapters/bandctl"
	"github.com/arenalabs/motionduel/internal/adapters/ledger"
	"github.com/arenalabs/motionduel/internal/adapters/telemetry"
	"github.com/arenalabs/motionduel/internal/domain/model"
	"github.com/arenalabs/motionduel/internal/domain/scoring"
	"github.com/arenalabs/motionduel/pkg/logger"
	"github.com/arenalabs/motionduel/pkg/metrics"
)

// Session describes a running or just-finished capture session.
type Session struct {
	ID        string       `json:"id"`
	BandIDs   []string     `json:"band_ids"`
	Axes      []model.Axis `json:"axes"`
	StartedAt time.Time    `json:"started_at"`
}

// Result is the outcome of a stopped session. Credited lists only the bands
// whose totals were positive; zero-motion bands earn nothing here.
type Result struct {
	Session  Session        `json:"session"`
	Totals   map[string]int `json:"totals"`
	Samples  int            `json:"samples"`
	Credited map[string]int `json:"credited"`
}

// Manager owns at most one capture session at a time.
type Manager struct {
	scores telemetry.Reader
	bands  bandctl.Controller
	ledger ledger.Ledger
	tick   time.Duration
	log    logger.Logger

	mu     sync.Mutex
	active *session
}

type session struct {
	info   Session
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	accs map[string]*scoring.Accumulator
}

// NewManager builds a freeplay manager over the given adapters.
func NewManager(scores telemetry.Reader, bands bandctl.Controller, lg ledger.Ledger, opts ...Option) *Manager {
	m := &Manager{
		scores: scores,
		bands:  bands,
		ledger: lg,
		tick:   time.Second,
		log:    logger.Get().Named("freeplay"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start switches capture on for the given wristbands and begins sampling.
// Axes defaults to all three when empty.
func (m *Manager) Start(ctx context.Context, bandIDs []string, axes []model.Axis) (Session, error) {
	if len(bandIDs) == 0 {
		return Session{}, ErrNoBands
	}
	if len(axes) == 0 {
		axes = []model.Axis{model.AxisX, model.AxisY, model.AxisZ}
	}
	for _, a := range axes {
		if !a.Valid() {
			return Session{}, ErrInvalidAxes
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return Session{}, ErrSessionActive
	}

	if res := m.bands.StartCapture(ctx, bandIDs); !res.AllOK() {
		m.log.Warn(ctx, "start capture incomplete", logger.Any("failed", res.Failed))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		info: Session{
			ID:        uuid.NewString(),
			BandIDs:   append([]string(nil), bandIDs...),
			Axes:      append([]model.Axis(nil), axes...),
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
		accs:   make(map[string]*scoring.Accumulator, len(bandIDs)),
	}
	for _, id := range bandIDs {
		s.accs[id] = &scoring.Accumulator{}
	}
	m.active = s

	go m.sample(runCtx, s)
	metrics.RecordFreeplaySession()
	m.log.Info(ctx, "capture session started",
		logger.String("session", s.info.ID),
		logger.Int("bands", len(bandIDs)),
	)
	return s.info, nil
}

// sample polls every band on the tick and folds readouts into the
// accumulators until the session is stopped.
func (m *Manager) sample(ctx context.Context, s *session) {
	defer close(s.done)
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var wg sync.WaitGroup
			for _, id := range s.info.BandIDs {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					sample, err := m.scores.Scores(ctx, id)
					if err != nil {
						m.log.Debug(ctx, "session readout failed",
							logger.String("band", id), logger.Error(err))
						return
					}
					s.mu.Lock()
					s.accs[id].Add(sample)
					s.mu.Unlock()
				}(id)
			}
			wg.Wait()
		}
	}
}

// Stop switches capture off, totals the accumulated motion, and credits the
// bands that moved. Bands with a zero total are reported but not credited.
func (m *Manager) Stop(ctx context.Context) (Result, error) {
	m.mu.Lock()
	s := m.active
	m.active = nil
	m.mu.Unlock()
	if s == nil {
		return Result{}, ErrNoSession
	}

	s.cancel()
	<-s.done

	if res := m.bands.StopCapture(ctx, s.info.BandIDs); !res.AllOK() {
		m.log.Warn(ctx, "stop capture incomplete", logger.Any("failed", res.Failed))
	}

	out := Result{
		Session:  s.info,
		Totals:   make(map[string]int, len(s.info.BandIDs)),
		Credited: make(map[string]int),
	}

	s.mu.Lock()
	for id, acc := range s.accs {
		out.Totals[id] = acc.Points(s.info.Axes)
		if acc.Samples() > out.Samples {
			out.Samples = acc.Samples()
		}
	}
	s.mu.Unlock()

	for _, id := range s.info.BandIDs {
		pts := out.Totals[id]
		if pts <= 0 {
			continue
		}
		if err := m.ledger.CreditPoints(ctx, id, pts, "ad-hoc capture session"); err != nil {
			m.log.Warn(ctx, "session credit failed",
				logger.String("band", id), logger.Error(err))
			continue
		}
		out.Credited[id] = pts
	}

	m.log.Info(ctx, "capture session stopped",
		logger.String("session", s.info.ID),
		logger.Int("credited", len(out.Credited)),
	)
	return out, nil
}

// Active returns the running session, if any, with its live totals.
func (m *Manager) Active() (Session, map[string]int, bool) {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	if s == nil {
		return Session{}, nil, false
	}

	totals := make(map[string]int, len(s.info.BandIDs))
	s.mu.Lock()
	for id, acc := range s.accs {
		totals[id] = acc.Points(s.info.Axes)
	}
	s.mu.Unlock()
	return s.info, totals, true
}
