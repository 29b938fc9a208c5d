package handlers

import (
	"context"
	"net/http"

	"github.com/bracketops/bracket-console/models"
	"github.com/bracketops/bracket-console/services"
)

type ProgressionHandler struct {
	progression  *services.Progression
	tournamentID int
}

func NewProgressionHandler(progression *services.Progression, tournamentID int) *ProgressionHandler {
	return &ProgressionHandler{progression: progression, tournamentID: tournamentID}
}

type transitionInput struct {
	Confirmed bool `json:"confirmed"`
}

// AdvanceRound handles POST /tournaments/{tournamentID}/advance.
func (h *ProgressionHandler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.progression.AdvanceRound)
}

// CompleteTournament handles POST /tournaments/{tournamentID}/complete.
func (h *ProgressionHandler) CompleteTournament(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.progression.CompleteTournament)
}

func (h *ProgressionHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	run func(ctx context.Context, confirmed bool) (*models.Tournament, error),
) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if id != h.tournamentID {
		notFoundResponse(w, r)
		return
	}

	var input transitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := run(r.Context(), input.Confirmed)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
