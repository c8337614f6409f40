package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/arenalabs/motionduel/internal/app/freeplay"
	"github.com/arenalabs/motionduel/internal/domain/model"
)

// freeplayRequest is the POST /freeplay/start payload.
type freeplayRequest struct {
	BandIDs []string `json:"band_ids"`
	Axes    []string `json:"axes"`
}

func (s *Server) handleFreeplayStart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req freeplayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	axes := make([]model.Axis, 0, len(req.Axes))
	for _, a := range req.Axes {
		axes = append(axes, model.Axis(strings.ToUpper(strings.TrimSpace(a))))
	}

	session, err := s.deps.StartFreeplay(r.Context(), req.BandIDs, axes)
	if err != nil {
		if errors.Is(err, freeplay.ErrSessionActive) {
			writeError(w, http.StatusConflict, "session_active", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleFreeplayStop(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := s.deps.StopFreeplay(r.Context())
	if err != nil {
		if errors.Is(err, freeplay.ErrNoSession) {
			writeError(w, http.StatusNotFound, "no_session", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// freeplayStatus is the GET /freeplay response.
type freeplayStatus struct {
	Active  bool              `json:"active"`
	Session *freeplay.Session `json:"session,omitempty"`
	Totals  map[string]int    `json:"totals,omitempty"`
}

func (s *Server) handleFreeplayActive(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	session, totals, ok := s.deps.ActiveFreeplay()
	if !ok {
		writeJSON(w, http.StatusOK, freeplayStatus{Active: false})
		return
	}
	writeJSON(w, http.StatusOK, freeplayStatus{Active: true, Session: &session, Totals: totals})
}
