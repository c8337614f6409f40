package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/arenalabs/motionduel/internal/adapters/ledger"
)

func (s *Server) handleListBands(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	devices, err := s.deps.Bands(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "registry_unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// bandScoresResponse pairs the raw sample with the resolved identity, when
// there is one, so the admin UI shows who is wearing the band.
type bandScoresResponse struct {
	BandID string           `json:"band_id"`
	X      float64          `json:"x"`
	Y      float64          `json:"y"`
	Z      float64          `json:"z"`
	Linked *ledger.Identity `json:"linked,omitempty"`
}

func (s *Server) handleBandScores(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	bandID := p.ByName("id")
	sample, err := s.deps.BandScores(r.Context(), bandID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "telemetry_unavailable", err)
		return
	}

	resp := bandScoresResponse{BandID: bandID, X: sample.X, Y: sample.Y, Z: sample.Z}
	if id, ok := s.deps.ResolveBand(r.Context(), bandID); ok {
		resp.Linked = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// linkRequest is the POST /bands/:id/link payload.
type linkRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

func (s *Server) handleLinkBand(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req linkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return
	}

	identity := ledger.Identity{ID: req.UserID, Name: req.Name, Email: req.Email}
	if err := s.deps.LinkBand(r.Context(), p.ByName("id"), identity); err != nil {
		if errors.Is(err, ledger.ErrBandAlreadyLinked) {
			writeError(w, http.StatusConflict, "band_linked", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlinkBand(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := s.deps.UnlinkBand(r.Context(), p.ByName("id")); err != nil {
		if errors.Is(err, ledger.ErrBandNotLinked) {
			writeError(w, http.StatusNotFound, "not_linked", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		limit = n
	}
	acts := s.deps.Activities(r.Context(), p.ByName("id"), limit)
	if acts == nil {
		acts = []ledger.Activity{}
	}
	writeJSON(w, http.StatusOK, acts)
}
