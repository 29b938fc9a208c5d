package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bracketops/bracket-console/client"
	"github.com/bracketops/bracket-console/models"
)

// RoundState is the sub-state of the current round while a tournament is
// ONGOING. It decides which progression command, if any, is legal.
type RoundState string

const (
	// RoundStateNone applies when the tournament is not ongoing or has no bracket.
	RoundStateNone RoundState = "NONE"
	// RoundInProgress: at least one match in the current round is not completed.
	RoundInProgress RoundState = "IN_PROGRESS"
	// RoundAdvanceable: current round fully complete, later rounds remain.
	RoundAdvanceable RoundState = "ADVANCEABLE"
	// RoundFinalizable: final round fully complete, tournament may be completed.
	RoundFinalizable RoundState = "FINALIZABLE"
)

// EvaluateRound computes the round sub-state from a tournament and its model.
// The round being played is taken from the server's CurrentRound (1-based):
// bracket payloads already carry the next round's SCHEDULED matches, so a
// completion-derived cursor would skip past a just-finished round and never
// report it as advanceable.
func EvaluateRound(tournament *models.Tournament, model *models.BracketModel) RoundState {
	if tournament == nil || tournament.Status != models.TournamentOngoing {
		return RoundStateNone
	}
	if model == nil || model.TotalRounds() == 0 {
		return RoundStateNone
	}

	idx := tournament.CurrentRound - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(model.RoundProgress) {
		idx = len(model.RoundProgress) - 1
	}
	if !model.RoundProgress[idx].FullyComplete {
		return RoundInProgress
	}
	if idx < model.TotalRounds()-1 {
		return RoundAdvanceable
	}
	return RoundFinalizable
}

// Progression executes the two externally-authorized transitions. Every guard
// is re-checked against the latest published snapshot at invocation time, and
// the server response stays authoritative: success triggers a refresh instead
// of mutating the local model.
type Progression struct {
	api          client.TournamentAPI
	refresher    *RefreshController
	tournamentID int
	logger       *slog.Logger
}

func NewProgression(api client.TournamentAPI, refresher *RefreshController, tournamentID int, logger *slog.Logger) *Progression {
	if logger == nil {
		logger = slog.Default()
	}
	return &Progression{
		api:          api,
		refresher:    refresher,
		tournamentID: tournamentID,
		logger:       logger,
	}
}

// AdvanceRound closes the current round and asks the server to open the next.
// confirmed must be true; callers that have not collected operator
// confirmation get ErrConfirmationRequired without any network call.
func (s *Progression) AdvanceRound(ctx context.Context, confirmed bool) (*models.Tournament, error) {
	if err := s.guard(RoundAdvanceable, confirmed); err != nil {
		return nil, err
	}

	tournament, err := s.api.AdvanceRound(ctx, s.tournamentID)
	if err != nil {
		return nil, fmt.Errorf("advance round: %w", err)
	}

	s.logger.Info("round advanced",
		slog.Int("tournament_id", s.tournamentID),
		slog.Int("current_round", tournament.CurrentRound))
	s.refreshAfterTransition(ctx)
	return tournament, nil
}

// CompleteTournament finalizes the tournament; the server fixes the winner.
func (s *Progression) CompleteTournament(ctx context.Context, confirmed bool) (*models.Tournament, error) {
	if err := s.guard(RoundFinalizable, confirmed); err != nil {
		return nil, err
	}

	tournament, err := s.api.CompleteTournament(ctx, s.tournamentID)
	if err != nil {
		return nil, fmt.Errorf("complete tournament: %w", err)
	}

	s.logger.Info("tournament completed", slog.Int("tournament_id", s.tournamentID))
	s.refreshAfterTransition(ctx)
	return tournament, nil
}

func (s *Progression) guard(required RoundState, confirmed bool) error {
	snapshot, ok := s.refresher.Current()
	if !ok {
		return ErrSnapshotUnavailable
	}
	if snapshot.Tournament == nil || snapshot.Tournament.Status != models.TournamentOngoing {
		return ErrTournamentNotOngoing
	}
	if !snapshot.HasBracket {
		return ErrNoBracket
	}

	if snapshot.RoundState != required {
		switch {
		case snapshot.RoundState == RoundFinalizable && required == RoundAdvanceable:
			return ErrAlreadyFinalRound
		case snapshot.RoundState == RoundAdvanceable && required == RoundFinalizable:
			return ErrNotFinalRound
		default:
			return ErrRoundNotComplete
		}
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	return nil
}

func (s *Progression) refreshAfterTransition(ctx context.Context) {
	if _, err := s.refresher.RefreshNow(ctx); err != nil {
		// The transition already succeeded server-side; the next scheduled
		// refresh will pick the new state up.
		s.logger.Warn("post-transition refresh failed", slog.Any("error", err))
	}
}
