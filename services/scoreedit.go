package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bracketops/bracket-console/client"
	"github.com/bracketops/bracket-console/models"
)

// Draft is the per-match optimistic edit: a local copy of both scores that
// exists only for the lifetime of the edit session. It never leaks into the
// published BracketModel; a refresh completing mid-edit leaves it untouched.
type Draft struct {
	MatchID    int  `json:"match_id"`
	Team1Score *int `json:"team1_score"`
	Team2Score *int `json:"team2_score"`
}

func (d *Draft) clone() Draft {
	out := Draft{MatchID: d.MatchID}
	if d.Team1Score != nil {
		v := *d.Team1Score
		out.Team1Score = &v
	}
	if d.Team2Score != nil {
		v := *d.Team2Score
		out.Team2Score = &v
	}
	return out
}

// ScoreEditor manages score entry for one viewer. Only one match may be in
// edit mode at a time; that is a UI constraint, not a data constraint — other
// operators may edit other matches concurrently without coordination here.
type ScoreEditor struct {
	api       client.TournamentAPI
	refresher *RefreshController
	logger    *slog.Logger

	mu    sync.Mutex
	draft *Draft
}

func NewScoreEditor(api client.TournamentAPI, refresher *RefreshController, logger *slog.Logger) *ScoreEditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreEditor{api: api, refresher: refresher, logger: logger}
}

// BeginEdit snapshots the match's current scores into a fresh draft.
// Re-beginning the same match resets the draft from the published model.
func (e *ScoreEditor) BeginEdit(matchID int) (Draft, error) {
	snapshot, ok := e.refresher.Current()
	if !ok {
		return Draft{}, ErrSnapshotUnavailable
	}
	if !snapshot.HasBracket || snapshot.Bracket == nil {
		return Draft{}, ErrNoBracket
	}
	match := snapshot.Bracket.FindMatch(matchID)
	if match == nil {
		return Draft{}, ErrMatchNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft != nil && e.draft.MatchID != matchID {
		return Draft{}, ErrEditInProgress
	}

	draft := Draft{MatchID: matchID}
	if match.Score1 != nil {
		v := *match.Score1
		draft.Team1Score = &v
	}
	if match.Score2 != nil {
		v := *match.Score2
		draft.Team2Score = &v
	}
	e.draft = &draft
	return draft.clone(), nil
}

// SetDraftScore mutates the draft only; nothing reaches the network.
func (e *ScoreEditor) SetDraftScore(matchID, side, value int) (Draft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil || e.draft.MatchID != matchID {
		return Draft{}, ErrNoEditSession
	}
	switch side {
	case 1:
		e.draft.Team1Score = &value
	case 2:
		e.draft.Team2Score = &value
	default:
		return Draft{}, ErrInvalidScoreSide
	}
	return e.draft.clone(), nil
}

// Draft returns the open draft for a match, if any.
func (e *ScoreEditor) Draft(matchID int) (Draft, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil || e.draft.MatchID != matchID {
		return Draft{}, false
	}
	return e.draft.clone(), true
}

// SubmitEdit validates the draft, submits it with status COMPLETED and
// discards the draft on success. Validation failures block locally and never
// reach the network. A failed submission keeps the draft so the operator can
// correct and retry.
func (e *ScoreEditor) SubmitEdit(ctx context.Context, matchID int) (*models.Match, error) {
	e.mu.Lock()
	if e.draft == nil || e.draft.MatchID != matchID {
		e.mu.Unlock()
		return nil, ErrNoEditSession
	}
	draft := e.draft.clone()
	e.mu.Unlock()

	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	match, err := e.api.UpdateMatchScore(ctx, matchID, client.ScoreUpdate{
		Team1Score: *draft.Team1Score,
		Team2Score: *draft.Team2Score,
		Status:     models.MatchCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("submit scores for match %d: %w", matchID, err)
	}

	e.mu.Lock()
	if e.draft != nil && e.draft.MatchID == matchID {
		e.draft = nil
	}
	e.mu.Unlock()

	e.logger.Info("match scores submitted",
		slog.Int("match_id", matchID),
		slog.Int("team1_score", *draft.Team1Score),
		slog.Int("team2_score", *draft.Team2Score))

	// The submitted result must show up in the next published model, not wait
	// for the next scheduled tick.
	if _, err := e.refresher.RefreshNow(ctx); err != nil {
		e.logger.Warn("post-submit refresh failed", slog.Any("error", err))
	}
	return match, nil
}

// CancelEdit discards the draft without any network call.
func (e *ScoreEditor) CancelEdit(matchID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil || e.draft.MatchID != matchID {
		return ErrNoEditSession
	}
	e.draft = nil
	return nil
}

func validateDraft(draft Draft) error {
	if draft.Team1Score == nil || draft.Team2Score == nil {
		return ErrScoreNotSet
	}
	if *draft.Team1Score < 0 || *draft.Team2Score < 0 {
		return ErrNegativeScore
	}
	if *draft.Team1Score == *draft.Team2Score {
		return ErrTiedScore
	}
	return nil
}
