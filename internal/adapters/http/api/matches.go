package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/arenalabs/motionduel/internal/adapters/matchstore"
	"github.com/arenalabs/motionduel/internal/domain/model"
)

// roundRequest mirrors one round's configuration in the create payload.
type roundRequest struct {
	Movement string   `json:"movement"`
	Duration int      `json:"duration"`
	Axes     []string `json:"axes"`
}

// matchRequest is the POST /matches payload.
type matchRequest struct {
	BandA      string          `json:"band_a"`
	BandB      string          `json:"band_b"`
	AutoUnlink bool            `json:"auto_unlink"`
	Rounds     [2]roundRequest `json:"rounds"`
}

func (m matchRequest) validate() error {
	switch {
	case strings.TrimSpace(m.BandA) == "":
		return errors.New("missing band_a")
	case strings.TrimSpace(m.BandB) == "":
		return errors.New("missing band_b")
	}
	for i, r := range m.Rounds {
		if strings.TrimSpace(r.Movement) == "" {
			return fmt.Errorf("round %d: missing movement", i+1)
		}
	}
	return nil
}

func (m matchRequest) rounds() [2]model.Round {
	var out [2]model.Round
	for i, r := range m.Rounds {
		axes := make([]model.Axis, 0, len(r.Axes))
		for _, a := range r.Axes {
			axes = append(axes, model.Axis(strings.ToUpper(strings.TrimSpace(a))))
		}
		out[i] = model.Round{Movement: r.Movement, Duration: r.Duration, Axes: axes}
	}
	return out
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req matchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	m, err := s.deps.CreateMatch(r.Context(), req.rounds(), req.BandA, req.BandB, req.AutoUnlink)
	if err != nil {
		if errors.Is(err, matchstore.ErrMatchInProgress) {
			writeError(w, http.StatusConflict, "match_in_progress", err)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleCurrentMatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	m, ok := s.deps.CurrentMatch(r.Context())
	if !ok {
		writeError(w, http.StatusNotFound, "no_match", errors.New("no match stored"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCancelMatch(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.deps.CancelMatch(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
