package services

import "errors"

// Shared errors surfaced across services and mapped to HTTP statuses by the
// handler layer.
var (
	// Snapshot / model availability
	ErrSnapshotUnavailable = errors.New("no bracket snapshot has been published yet")
	ErrNoBracket           = errors.New("no bracket has been generated for this tournament")
	ErrMatchNotFound       = errors.New("match not found in the current bracket")

	// Progression preconditions
	ErrTournamentNotOngoing = errors.New("tournament is not in progress")
	ErrRoundNotComplete     = errors.New("current round still has unfinished matches")
	ErrAlreadyFinalRound    = errors.New("current round is the final round, complete the tournament instead")
	ErrNotFinalRound        = errors.New("tournament still has rounds to play")
	ErrConfirmationRequired = errors.New("action requires confirmation")

	// Score edit session
	ErrEditInProgress   = errors.New("another match is already being edited")
	ErrNoEditSession    = errors.New("no edit session is open for this match")
	ErrInvalidScoreSide = errors.New("score side must be 1 or 2")
	ErrScoreNotSet      = errors.New("both scores must be entered before submitting")
	ErrNegativeScore    = errors.New("scores must be non-negative")
	ErrTiedScore        = errors.New("scores must not be equal")
)
