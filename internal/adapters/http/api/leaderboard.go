package api

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/arenalabs/motionduel/internal/adapters/ledger"
)

// handleLeaderboard serves GET /leaderboard?by=points|victories&limit=N.
// Victories is the default criterion, matching the on-site reveal screen.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	byPoints := false
	switch r.URL.Query().Get("by") {
	case "", "victories":
	case "points":
		byPoints = true
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		limit = n
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	entries := s.deps.Leaderboard(r.Context(), byPoints, limit)
	if entries == nil {
		entries = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
