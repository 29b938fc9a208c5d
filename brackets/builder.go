package brackets

import (
	"log/slog"

	"github.com/bracketops/bracket-console/models"
)

// BuildModel derives the immutable BracketModel from canonical rounds. Each
// call returns a fresh value; published models are never mutated in place.
//
// The winner of a match is whatever the payload declared, never recomputed
// from scores. When both signals are present and disagree the conflict is
// logged and the declared winner still wins; the upstream service is the
// arbiter.
func BuildModel(rounds []models.Round, logger *slog.Logger) models.BracketModel {
	if logger == nil {
		logger = slog.Default()
	}

	model := models.BracketModel{
		Rounds:        rounds,
		RoundProgress: make([]models.RoundProgress, 0, len(rounds)),
	}

	currentIndex := -1
	for ri, round := range rounds {
		completed := 0
		for mi := range round.Matches {
			match := &rounds[ri].Matches[mi]
			if match.Status == models.MatchCompleted {
				completed++
				checkWinnerConsistency(match, logger)
			}
		}

		total := len(round.Matches)
		model.TotalMatches += total
		model.CompletedMatches += completed
		model.RoundProgress = append(model.RoundProgress, models.RoundProgress{
			RoundNumber:   round.Number,
			Name:          round.Name,
			Completed:     completed,
			Total:         total,
			FullyComplete: total > 0 && completed == total,
		})

		if currentIndex == -1 && (total == 0 || completed < total) {
			currentIndex = ri
		}
	}

	// All rounds complete: the last round stays current.
	if currentIndex == -1 && len(rounds) > 0 {
		currentIndex = len(rounds) - 1
	}
	if currentIndex < 0 {
		currentIndex = 0
	}
	model.CurrentRoundIndex = currentIndex

	if model.TotalMatches > 0 {
		model.ProgressPercent = float64(model.CompletedMatches) / float64(model.TotalMatches) * 100
	}

	model.Winner = resolveWinner(rounds)
	return model
}

// resolveWinner returns the declared winner of the final round's match once
// every final-round match is complete.
func resolveWinner(rounds []models.Round) *models.Team {
	if len(rounds) == 0 {
		return nil
	}
	final := rounds[len(rounds)-1]
	if len(final.Matches) == 0 {
		return nil
	}
	for _, m := range final.Matches {
		if m.Status != models.MatchCompleted {
			return nil
		}
	}
	last := final.Matches[len(final.Matches)-1]
	if slot := last.WinnerSlot(); slot != nil {
		return slot.Team
	}
	return nil
}

func checkWinnerConsistency(match *models.Match, logger *slog.Logger) {
	if match.WinnerTeamID == nil || match.Score1 == nil || match.Score2 == nil {
		return
	}
	if *match.Score1 == *match.Score2 {
		return
	}

	higher := match.Slot1.Team
	if *match.Score2 > *match.Score1 {
		higher = match.Slot2.Team
	}
	if higher == nil {
		return
	}
	if higher.ID != *match.WinnerTeamID {
		logger.Warn("declared winner disagrees with scores",
			slog.Int("match_id", match.ID),
			slog.Int("declared_winner_id", *match.WinnerTeamID),
			slog.Int("higher_scorer_id", higher.ID),
			slog.Int("score1", *match.Score1),
			slog.Int("score2", *match.Score2),
		)
	}
}
