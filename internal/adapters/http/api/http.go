// Package api declares the HTTP surface: match administration, wristband
// operations, leaderboards, capture sessions, and the display feed.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/arenalabs/motionduel/internal/adapters/bandctl"
	"github.com/arenalabs/motionduel/internal/adapters/ledger"
	"github.com/arenalabs/motionduel/internal/app/freeplay"
	"github.com/arenalabs/motionduel/internal/app/orchestrator"
	"github.com/arenalabs/motionduel/internal/domain/model"
	"github.com/arenalabs/motionduel/internal/domain/scoring"
	"github.com/arenalabs/motionduel/pkg/logger"
)

// Dependencies bundles what the handlers need from the service layer. The
// interface keeps this package decoupled from the concrete wiring.
type Dependencies interface {
	CreateMatch(ctx context.Context, rounds [2]model.Round, bandA, bandB string, autoUnlink bool) (model.Match, error)
	CurrentMatch(ctx context.Context) (model.Match, bool)
	CancelMatch(ctx context.Context)

	Leaderboard(ctx context.Context, byPoints bool, limit int) []ledger.Entry

	Bands(ctx context.Context) ([]bandctl.Device, error)
	BandScores(ctx context.Context, bandID string) (scoring.Sample, error)
	LinkBand(ctx context.Context, bandID string, identity ledger.Identity) error
	UnlinkBand(ctx context.Context, bandID string) error
	ResolveBand(ctx context.Context, bandID string) (ledger.Identity, bool)
	Activities(ctx context.Context, userID string, limit int) []ledger.Activity

	StartFreeplay(ctx context.Context, bandIDs []string, axes []model.Axis) (freeplay.Session, error)
	StopFreeplay(ctx context.Context) (freeplay.Result, error)
	ActiveFreeplay() (freeplay.Session, map[string]int, bool)

	SubscribeFrames(fn func(orchestrator.Frame)) func()
}

// Server wires HTTP routes for the game API.
type Server struct {
	deps       Dependencies
	maxLimit   int
	displayURL string
	started    time.Time
	log        logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps the leaderboard page size.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithDisplayURL sets the URL the QR endpoint encodes.
func WithDisplayURL(url string) Option {
	return func(s *Server) { s.displayURL = url }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer creates the API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		maxLimit: 100,
		started:  time.Now(),
		log:      logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *httprouter.Router {
	r := httprouter.New()

	r.POST("/matches", s.instrument("matches", s.handleCreateMatch))
	r.GET("/matches/current", s.instrument("match_current", s.handleCurrentMatch))
	r.DELETE("/matches/current", s.instrument("match_cancel", s.handleCancelMatch))

	r.GET("/leaderboard", s.instrument("leaderboard", s.handleLeaderboard))

	r.GET("/bands", s.instrument("bands", s.handleListBands))
	r.GET("/bands/:id/scores", s.instrument("band_scores", s.handleBandScores))
	r.POST("/bands/:id/link", s.instrument("band_link", s.handleLinkBand))
	r.DELETE("/bands/:id/link", s.instrument("band_unlink", s.handleUnlinkBand))

	r.GET("/users/:id/activities", s.instrument("activities", s.handleActivities))

	r.POST("/freeplay/start", s.instrument("freeplay_start", s.handleFreeplayStart))
	r.POST("/freeplay/stop", s.instrument("freeplay_stop", s.handleFreeplayStop))
	r.GET("/freeplay", s.instrument("freeplay_active", s.handleFreeplayActive))

	r.GET("/display/ws", s.handleDisplayWS)
	r.GET("/display/qr", s.instrument("display_qr", s.handleDisplayQR))

	r.GET("/healthz", s.instrument("healthz", s.handleHealth))
	r.GET("/stats", s.instrument("stats", s.handleStats))

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
