package models

import "time"

// TournamentStatus mirrors the status enum used by the remote tournament service.
type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "REGISTRATION"
	TournamentReady        TournamentStatus = "READY"
	TournamentOngoing      TournamentStatus = "ONGOING"
	TournamentCompleted    TournamentStatus = "COMPLETED"
	TournamentCancelled    TournamentStatus = "CANCELLED"
)

// NormalizeTournamentStatus folds the variants the service has shipped over time
// into the canonical set. "IN_PROGRESS" and "ONGOING" are the same state.
func NormalizeTournamentStatus(raw string) TournamentStatus {
	if raw == "IN_PROGRESS" {
		return TournamentOngoing
	}
	return TournamentStatus(raw)
}

// Tournament is the canonical tournament record.
// CurrentRound is 1-based and only meaningful while Status is ONGOING.
type Tournament struct {
	ID                   int              `json:"id"`
	Name                 string           `json:"name"`
	Status               TournamentStatus `json:"status"`
	MaxTeams             int              `json:"max_teams"`
	CurrentTeams         int              `json:"current_teams"`
	CurrentRound         int              `json:"current_round"`
	StartDate            *time.Time       `json:"start_date,omitempty"`
	EndDate              *time.Time       `json:"end_date,omitempty"`
	RegistrationDeadline *time.Time       `json:"registration_deadline,omitempty"`
	WinnerTeam           *Team            `json:"winner_team,omitempty"`
}
