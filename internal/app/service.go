// Package service wires the adapters into the business surface the HTTP API
// serves: match administration, wristband operations, the ledger, and the
// live display feed.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arenalabs/motionduel/internal/adapters/bandctl"
	"github.com/arenalabs/motionduel/internal/adapters/ledger"
	"github.com/arenalabs/motionduel/internal/adapters/matchstore"
	"github.com/arenalabs/motionduel/internal/adapters/telemetry"
	"github.com/arenalabs/motionduel/internal/app/freeplay"
	"github.com/arenalabs/motionduel/internal/app/orchestrator"
	"github.com/arenalabs/motionduel/internal/domain/model"
	"github.com/arenalabs/motionduel/internal/domain/scoring"
	"github.com/arenalabs/motionduel/pkg/logger"
	"github.com/arenalabs/motionduel/pkg/metrics"
)

// DeviceLister enumerates registered player wristbands.
type DeviceLister interface {
	Devices(ctx context.Context) ([]bandctl.Device, error)
}

// Service implements the API dependencies for the motion game.
type Service struct {
	store    matchstore.Store
	scores   telemetry.Reader
	bands    bandctl.Controller
	registry DeviceLister
	ledger   ledger.Ledger

	driver   *orchestrator.Orchestrator
	sessions *freeplay.Manager

	timing       orchestrator.Timing
	freeplayTick time.Duration

	started bool
	mu      sync.Mutex
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the match record store.
func WithStore(s matchstore.Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithTelemetry sets the score reader.
func WithTelemetry(r telemetry.Reader) Option {
	return func(svc *Service) { svc.scores = r }
}

// WithBandControl sets the capture controller.
func WithBandControl(c bandctl.Controller) Option {
	return func(svc *Service) { svc.bands = c }
}

// WithDeviceRegistry sets the wristband registry.
func WithDeviceRegistry(r DeviceLister) Option {
	return func(svc *Service) { svc.registry = r }
}

// WithLedger sets the points and victories ledger.
func WithLedger(l ledger.Ledger) Option {
	return func(svc *Service) { svc.ledger = l }
}

// WithOrchestrator sets a pre-built match driver.
func WithOrchestrator(o *orchestrator.Orchestrator) Option {
	return func(svc *Service) { svc.driver = o }
}

// WithFreeplay sets a pre-built session manager.
func WithFreeplay(m *freeplay.Manager) Option {
	return func(svc *Service) { svc.sessions = m }
}

// WithTiming sets the match pacing used when the driver is built here.
func WithTiming(t orchestrator.Timing) Option {
	return func(svc *Service) { svc.timing = t }
}

// WithFreeplayTick sets the sampling cadence of ad-hoc capture sessions.
func WithFreeplayTick(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.freeplayTick = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// New creates the service. Adapters not supplied through options default to
// their in-memory implementations, which is what the tests use.
func New(opts ...Option) *Service {
	svc := &Service{
		timing:       orchestrator.DefaultTiming(),
		freeplayTick: time.Second,
		logger:       logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.store == nil {
		svc.store = matchstore.NewInMemoryStore()
	}
	if svc.ledger == nil {
		svc.ledger = ledger.NewInMemoryLedger()
	}
	return svc
}

// Start launches the match driver.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("service already started")
	}
	if s.scores == nil || s.bands == nil {
		return fmt.Errorf("telemetry and band control adapters are required")
	}

	if s.driver == nil {
		s.driver = orchestrator.New(s.store, s.scores, s.bands, s.ledger,
			orchestrator.WithTiming(s.timing))
	}
	if s.sessions == nil {
		s.sessions = freeplay.NewManager(s.scores, s.bands, s.ledger,
			freeplay.WithTick(s.freeplayTick))
	}

	s.driver.Start(ctx)
	s.started = true
	s.logger.Info(ctx, "service started")
	return nil
}

// Stop halts the driver and any running capture session.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	if s.sessions != nil {
		if _, err := s.sessions.Stop(context.Background()); err == nil {
			s.logger.Info(context.Background(), "capture session stopped on shutdown")
		}
	}
	s.driver.Stop()
	s.started = false
}

// CreateMatch validates and installs a new match. A match already in
// progress rejects the new one.
func (s *Service) CreateMatch(ctx context.Context, rounds [2]model.Round, bandA, bandB string, autoUnlink bool) (model.Match, error) {
	m, err := model.NewMatch(rounds, bandA, bandB, autoUnlink)
	if err != nil {
		return model.Match{}, err
	}
	if err := s.store.Create(ctx, m); err != nil {
		if err == matchstore.ErrMatchInProgress {
			metrics.RecordMatchRejected()
		}
		return model.Match{}, err
	}
	metrics.RecordMatchCreated()
	s.logger.Info(ctx, "match created",
		logger.String("match", m.ID),
		logger.String("band_a", bandA),
		logger.String("band_b", bandB),
	)
	return m, nil
}

// CurrentMatch returns the stored match record, if any.
func (s *Service) CurrentMatch(ctx context.Context) (model.Match, bool) {
	return s.store.Current(ctx)
}

// CancelMatch aborts whatever match is stored. Capture is switched off best
// effort so abandoned wristbands do not keep streaming.
func (s *Service) CancelMatch(ctx context.Context) {
	if m, ok := s.store.Current(ctx); ok && m.Status.Active() {
		s.bands.StopCapture(ctx, m.BandIDs[:])
	}
	s.store.Clear(ctx)
	s.logger.Info(ctx, "match cancelled")
}

// Leaderboard returns the ranking by the given criterion.
func (s *Service) Leaderboard(ctx context.Context, byPoints bool, limit int) []ledger.Entry {
	if byPoints {
		return s.ledger.TopByPoints(ctx, limit)
	}
	return s.ledger.TopByVictories(ctx, limit)
}

// Bands lists the registered player wristbands.
func (s *Service) Bands(ctx context.Context) ([]bandctl.Device, error) {
	if s.registry == nil {
		return nil, bandctl.ErrNoDeviceRegistry
	}
	return s.registry.Devices(ctx)
}

// BandScores reads the current per-axis magnitudes of one wristband.
func (s *Service) BandScores(ctx context.Context, bandID string) (scoring.Sample, error) {
	return s.scores.Scores(ctx, bandID)
}

// LinkBand binds a wristband to an identity.
func (s *Service) LinkBand(ctx context.Context, bandID string, identity ledger.Identity) error {
	return s.ledger.Link(ctx, bandID, identity)
}

// UnlinkBand releases a wristband.
func (s *Service) UnlinkBand(ctx context.Context, bandID string) error {
	return s.ledger.Unlink(ctx, bandID)
}

// ResolveBand returns the identity behind a wristband.
func (s *Service) ResolveBand(ctx context.Context, bandID string) (ledger.Identity, bool) {
	return s.ledger.ResolveIdentity(ctx, bandID)
}

// Activities returns an identity's activity log, newest first.
func (s *Service) Activities(ctx context.Context, userID string, limit int) []ledger.Activity {
	return s.ledger.Activities(ctx, userID, limit)
}

// StartFreeplay begins an ad-hoc capture session.
func (s *Service) StartFreeplay(ctx context.Context, bandIDs []string, axes []model.Axis) (freeplay.Session, error) {
	return s.sessions.Start(ctx, bandIDs, axes)
}

// StopFreeplay ends the running session and credits the movers.
func (s *Service) StopFreeplay(ctx context.Context) (freeplay.Result, error) {
	return s.sessions.Stop(ctx)
}

// ActiveFreeplay reports the running session, if any.
func (s *Service) ActiveFreeplay() (freeplay.Session, map[string]int, bool) {
	return s.sessions.Active()
}

// SubscribeFrames registers a display consumer on the live feed.
func (s *Service) SubscribeFrames(fn func(orchestrator.Frame)) func() {
	return s.driver.SubscribeFrames(fn)
}
