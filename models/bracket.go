package models

// Round is one ordered stage of the bracket. Number is 1-based.
type Round struct {
	Number  int     `json:"number"`
	Name    string  `json:"name"`
	Matches []Match `json:"matches"`
}

// RoundProgress is the derived completion state of a single round.
type RoundProgress struct {
	RoundNumber   int    `json:"round_number"`
	Name          string `json:"name"`
	Completed     int    `json:"completed"`
	Total         int    `json:"total"`
	FullyComplete bool   `json:"fully_complete"`
}

// BracketModel is the derived, immutable view all consumers read. It is rebuilt
// from scratch on every successful refresh and never mutated in place.
type BracketModel struct {
	Rounds            []Round         `json:"rounds"`
	RoundProgress     []RoundProgress `json:"round_progress"`
	TotalMatches      int             `json:"total_matches"`
	CompletedMatches  int             `json:"completed_matches"`
	CurrentRoundIndex int             `json:"current_round_index"`
	ProgressPercent   float64         `json:"progress_percent"`
	Winner            *Team           `json:"winner,omitempty"`
}

// TotalRounds is a convenience for progression checks.
func (m *BracketModel) TotalRounds() int {
	return len(m.Rounds)
}

// FindMatch locates a match by ID across all rounds.
func (m *BracketModel) FindMatch(matchID int) *Match {
	for ri := range m.Rounds {
		for mi := range m.Rounds[ri].Matches {
			if m.Rounds[ri].Matches[mi].ID == matchID {
				return &m.Rounds[ri].Matches[mi]
			}
		}
	}
	return nil
}
