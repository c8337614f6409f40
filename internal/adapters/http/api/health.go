package api

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statsResponse is a quick operational snapshot for the admin page.
type statsResponse struct {
	UptimeSeconds   int64  `json:"uptime_seconds"`
	MatchStored     bool   `json:"match_stored"`
	MatchID         string `json:"match_id,omitempty"`
	MatchPhase      string `json:"match_phase,omitempty"`
	FreeplayRunning bool   `json:"freeplay_running"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := statsResponse{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if m, ok := s.deps.CurrentMatch(r.Context()); ok {
		resp.MatchStored = true
		resp.MatchID = m.ID
		resp.MatchPhase = string(m.Status)
	}
	_, _, resp.FreeplayRunning = s.deps.ActiveFreeplay()
	writeJSON(w, http.StatusOK, resp)
}
