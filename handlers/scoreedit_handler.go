package handlers

import (
	"errors"
	"net/http"

	"github.com/bracketops/bracket-console/services"
)

type ScoreEditHandler struct {
	editor *services.ScoreEditor
}

func NewScoreEditHandler(editor *services.ScoreEditor) *ScoreEditHandler {
	return &ScoreEditHandler{editor: editor}
}

// BeginEdit handles POST /matches/{matchID}/edit.
func (h *ScoreEditHandler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	draft, err := h.editor.BeginEdit(matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"draft": draft}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SetDraftScore handles PUT /matches/{matchID}/edit.
func (h *ScoreEditHandler) SetDraftScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Side  *int `json:"side"`
		Value *int `json:"value"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Side == nil || input.Value == nil {
		badRequestResponse(w, r, errors.New("side and value are required"))
		return
	}

	draft, err := h.editor.SetDraftScore(matchID, *input.Side, *input.Value)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"draft": draft}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitEdit handles POST /matches/{matchID}/edit/submit.
func (h *ScoreEditHandler) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.editor.SubmitEdit(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelEdit handles DELETE /matches/{matchID}/edit.
func (h *ScoreEditHandler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.editor.CancelEdit(matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
