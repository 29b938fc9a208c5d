package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/bracketops/bracket-console/services"
)

type BracketHandler struct {
	refresher    *services.RefreshController
	tournamentID int
}

func NewBracketHandler(refresher *services.RefreshController, tournamentID int) *BracketHandler {
	return &BracketHandler{refresher: refresher, tournamentID: tournamentID}
}

// checkTournament rejects requests for tournaments this console instance is
// not pinned to.
func (h *BracketHandler) checkTournament(w http.ResponseWriter, r *http.Request) bool {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return false
	}
	if id != h.tournamentID {
		notFoundResponse(w, r)
		return false
	}
	return true
}

// GetSnapshot handles GET /tournaments/{tournamentID}/bracket.
func (h *BracketHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if !h.checkTournament(w, r) {
		return
	}

	snapshot, ok := h.refresher.Current()
	if !ok {
		mapServiceErrorToHTTP(w, r, services.ErrSnapshotUnavailable)
		return
	}

	resp := jsonResponse{
		"snapshot":         snapshot,
		"auto_refresh":     h.refresher.AutoRefreshEnabled(),
		"interval_seconds": int(h.refresher.Interval() / time.Second),
	}
	if lastErr := h.refresher.LastError(); lastErr != nil {
		resp["last_error"] = lastErr.Error()
	}
	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RefreshNow handles POST /tournaments/{tournamentID}/bracket/refresh.
func (h *BracketHandler) RefreshNow(w http.ResponseWriter, r *http.Request) {
	if !h.checkTournament(w, r) {
		return
	}

	snapshot, err := h.refresher.RefreshNow(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"snapshot": snapshot}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetAutoRefresh handles PUT /tournaments/{tournamentID}/bracket/auto-refresh.
func (h *BracketHandler) SetAutoRefresh(w http.ResponseWriter, r *http.Request) {
	if !h.checkTournament(w, r) {
		return
	}

	var input struct {
		Enabled         *bool `json:"enabled"`
		IntervalSeconds *int  `json:"interval_seconds"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Enabled == nil {
		badRequestResponse(w, r, errors.New("enabled is required"))
		return
	}
	if input.IntervalSeconds != nil {
		if *input.IntervalSeconds < 1 {
			badRequestResponse(w, r, errors.New("interval_seconds must be at least 1"))
			return
		}
		h.refresher.SetInterval(time.Duration(*input.IntervalSeconds) * time.Second)
	}
	h.refresher.SetAutoRefresh(*input.Enabled)

	resp := jsonResponse{
		"auto_refresh":     h.refresher.AutoRefreshEnabled(),
		"interval_seconds": int(h.refresher.Interval() / time.Second),
	}
	if err := writeJSON(w, http.StatusOK, resp, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
