package models

import "time"

type MatchStatus string

const (
	MatchScheduled  MatchStatus = "SCHEDULED"
	MatchInProgress MatchStatus = "IN_PROGRESS"
	MatchCompleted  MatchStatus = "COMPLETED"
	MatchCancelled  MatchStatus = "CANCELLED"
)

// NormalizeMatchStatus folds older envelope spellings into the canonical set.
// "PENDING" predates "SCHEDULED" in the service's history.
func NormalizeMatchStatus(raw string) MatchStatus {
	switch raw {
	case "PENDING", "":
		return MatchScheduled
	}
	return MatchStatus(raw)
}

// TeamSlot is a position in a match: either resolved to an approved team or
// left unresolved pending an earlier match's outcome.
type TeamSlot struct {
	Team *Team `json:"team,omitempty"`
}

func (s TeamSlot) Resolved() bool {
	return s.Team != nil
}

// DisplayName renders the placeholder for unresolved slots.
func (s TeamSlot) DisplayName() string {
	if s.Team == nil {
		return "TBD"
	}
	return s.Team.Name
}

// Match is the canonical match record.
// Scores are nil until entered; WinnerTeamID is nil unless the match is completed.
type Match struct {
	ID           int         `json:"id"`
	Round        int         `json:"round"`
	MatchNumber  int         `json:"match_number"`
	Slot1        TeamSlot    `json:"slot1"`
	Slot2        TeamSlot    `json:"slot2"`
	Score1       *int        `json:"score1,omitempty"`
	Score2       *int        `json:"score2,omitempty"`
	WinnerTeamID *int        `json:"winner_team_id,omitempty"`
	Status       MatchStatus `json:"status"`
	RoundName    string      `json:"round_name,omitempty"`
	ScheduledAt  *time.Time  `json:"scheduled_at,omitempty"`
	Location     *string     `json:"location,omitempty"`
}

// WinnerSlot returns the slot the declared winner occupies, or nil when the
// winner is unset or references neither slot.
func (m *Match) WinnerSlot() *TeamSlot {
	if m.WinnerTeamID == nil {
		return nil
	}
	if m.Slot1.Team != nil && m.Slot1.Team.ID == *m.WinnerTeamID {
		return &m.Slot1
	}
	if m.Slot2.Team != nil && m.Slot2.Team.ID == *m.WinnerTeamID {
		return &m.Slot2
	}
	return nil
}
