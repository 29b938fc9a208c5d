package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bracketops/bracket-console/client"
	"github.com/bracketops/bracket-console/models"
)

// fakeAPI is a hand-rolled client.TournamentAPI for service tests. Set the
// *Fn hooks for per-call behavior; otherwise the stored values are returned.
type fakeAPI struct {
	mu sync.Mutex

	tournament *models.Tournament
	matches    []models.Match
	bracket    json.RawMessage

	tournamentErr error
	matchesErr    error
	bracketErr    error

	bracketFn     func(ctx context.Context) (json.RawMessage, error)
	updateScoreFn func(matchID int, update client.ScoreUpdate) (*models.Match, error)

	advanceResult *models.Tournament
	advanceErr    error
	completeErr   error

	advanceCalls     int
	completeCalls    int
	updateScoreCalls int
}

var _ client.TournamentAPI = (*fakeAPI)(nil)

func (f *fakeAPI) FetchTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tournamentErr != nil {
		return nil, f.tournamentErr
	}
	if f.tournament == nil {
		return nil, fmt.Errorf("fake: no tournament configured")
	}
	copied := *f.tournament
	return &copied, nil
}

func (f *fakeAPI) FetchMatches(ctx context.Context, tournamentID int) ([]models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matchesErr != nil {
		return nil, f.matchesErr
	}
	return append([]models.Match(nil), f.matches...), nil
}

func (f *fakeAPI) FetchBracket(ctx context.Context, tournamentID int) (json.RawMessage, error) {
	f.mu.Lock()
	fn := f.bracketFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bracketErr != nil {
		return nil, f.bracketErr
	}
	return f.bracket, nil
}

func (f *fakeAPI) UpdateMatchScore(ctx context.Context, matchID int, update client.ScoreUpdate) (*models.Match, error) {
	f.mu.Lock()
	f.updateScoreCalls++
	fn := f.updateScoreFn
	f.mu.Unlock()
	if fn != nil {
		return fn(matchID, update)
	}
	return &models.Match{ID: matchID, Status: update.Status}, nil
}

func (f *fakeAPI) UpdateMatchStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error) {
	return &models.Match{ID: matchID, Status: status}, nil
}

func (f *fakeAPI) AdvanceRound(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanceCalls++
	if f.advanceErr != nil {
		return nil, f.advanceErr
	}
	if f.advanceResult != nil {
		copied := *f.advanceResult
		return &copied, nil
	}
	copied := *f.tournament
	copied.CurrentRound++
	return &copied, nil
}

func (f *fakeAPI) CompleteTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	copied := *f.tournament
	copied.Status = models.TournamentCompleted
	return &copied, nil
}

func (f *fakeAPI) setBracket(payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bracket = json.RawMessage(payload)
}

func ongoingTournament() *models.Tournament {
	return &models.Tournament{
		ID:           1,
		Name:         "Spring Cup",
		Status:       models.TournamentOngoing,
		MaxTeams:     4,
		CurrentTeams: 4,
		CurrentRound: 1,
	}
}

// twoRoundBracket builds a {data:{bracket:{rounds:…}}} payload with the first
// round in the given state and an untouched final.
const bracketIncomplete = `{"data":{"bracket":{"rounds":[
	{"name":"Semifinals","matches":[
		{"id":1,"team1":{"id":10,"name":"A"},"team2":{"id":11,"name":"B"},
		 "team1Score":2,"team2Score":1,"status":"COMPLETED","winnerTeamId":10},
		{"id":2,"team1":{"id":12,"name":"C"},"team2":{"id":13,"name":"D"},"status":"SCHEDULED"}
	]},
	{"name":"Final","matches":[{"id":3,"status":"SCHEDULED"}]}
]}}}`

const bracketAdvanceable = `{"data":{"bracket":{"rounds":[
	{"name":"Semifinals","matches":[
		{"id":1,"team1":{"id":10,"name":"A"},"team2":{"id":11,"name":"B"},
		 "team1Score":2,"team2Score":1,"status":"COMPLETED","winnerTeamId":10},
		{"id":2,"team1":{"id":12,"name":"C"},"team2":{"id":13,"name":"D"},
		 "team1Score":0,"team2Score":3,"status":"COMPLETED","winnerTeamId":13}
	]},
	{"name":"Final","matches":[{"id":3,"status":"SCHEDULED"}]}
]}}}`

const bracketFinalizable = `{"data":{"bracket":{"rounds":[
	{"name":"Final","matches":[
		{"id":3,"team1":{"id":10,"name":"A"},"team2":{"id":13,"name":"D"},
		 "team1Score":3,"team2Score":2,"status":"COMPLETED","winnerTeamId":10}
	]}
]}}}`
