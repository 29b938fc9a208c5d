// Package brackets turns the remote service's unstable bracket payloads into
// the one canonical model every downstream consumer reads, and derives the
// completion counts the console renders.
package brackets

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bracketops/bracket-console/models"
)

// NormalizedBracket is the tagged result of a shape probe. Found == false is
// the "no bracket generated" sentinel, not an error: callers render an empty
// state instead of failing.
type NormalizedBracket struct {
	Found  bool
	Rounds []models.Round
}

// roundsProbes lists the known response envelopes, most specific first. The
// service has shipped several envelopes over time; trying nested shapes before
// flatter ones keeps newer API versions working without version negotiation.
var roundsProbes = [][]string{
	{"data", "bracket", "rounds"},
	{"data", "rounds"},
	{"bracket", "rounds"},
	{"rounds"},
}

// NormalizeBracket probes a raw payload for a rounds array and converts it to
// canonical rounds. Malformed entries are kept with nil slots and scores
// rather than dropped, so the bracket never silently loses matches.
func NormalizeBracket(payload json.RawMessage) NormalizedBracket {
	var root interface{}
	if len(payload) == 0 || json.Unmarshal(payload, &root) != nil {
		return NormalizedBracket{}
	}

	rawRounds, ok := probeRounds(root)
	if !ok {
		return NormalizedBracket{}
	}

	rounds := make([]models.Round, 0, len(rawRounds))
	for i, entry := range rawRounds {
		rounds = append(rounds, normalizeRound(entry, i))
	}
	return NormalizedBracket{Found: true, Rounds: rounds}
}

func probeRounds(root interface{}) ([]interface{}, bool) {
	if obj, ok := root.(map[string]interface{}); ok {
		for _, path := range roundsProbes {
			if arr, ok := dig(obj, path); ok {
				return arr, true
			}
		}
		return nil, false
	}
	// A bare top-level array is the rounds array itself.
	if arr, ok := root.([]interface{}); ok {
		return arr, true
	}
	return nil, false
}

func dig(obj map[string]interface{}, path []string) ([]interface{}, bool) {
	cur := obj
	for i, key := range path {
		val, ok := cur[key]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			arr, ok := val.([]interface{})
			return arr, ok
		}
		next, ok := val.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func normalizeRound(entry interface{}, index int) models.Round {
	round := models.Round{
		Number:  index + 1,
		Name:    fmt.Sprintf("Round %d", index+1),
		Matches: []models.Match{},
	}

	obj, ok := entry.(map[string]interface{})
	if !ok {
		return round
	}

	if n, ok := intField(obj, "roundNumber", "number", "round"); ok {
		round.Number = n
	}
	if name, ok := stringField(obj, "roundName", "name"); ok && name != "" {
		round.Name = name
	}

	rawMatches, _ := obj["matches"].([]interface{})
	for i, m := range rawMatches {
		match := NormalizeMatch(m)
		if match.MatchNumber == 0 {
			match.MatchNumber = i + 1
		}
		if match.Round == 0 {
			match.Round = round.Number
		}
		round.Matches = append(round.Matches, match)
	}
	return round
}

// NormalizeMatch converts one raw match entry. Missing or non-numeric fields
// degrade to nil (rendered as TBD), never to a dropped match.
func NormalizeMatch(entry interface{}) models.Match {
	match := models.Match{Status: models.MatchScheduled}

	obj, ok := entry.(map[string]interface{})
	if !ok {
		return match
	}

	if id, ok := intField(obj, "id", "matchId"); ok {
		match.ID = id
	}
	if n, ok := intField(obj, "matchNumber", "position"); ok {
		match.MatchNumber = n
	}
	if r, ok := intField(obj, "round", "roundNumber"); ok {
		match.Round = r
	}
	if name, ok := stringField(obj, "roundName"); ok {
		match.RoundName = name
	}

	match.Slot1 = normalizeSlot(obj, "team1", "teamOne")
	match.Slot2 = normalizeSlot(obj, "team2", "teamTwo")

	if s, ok := intField(obj, "team1Score", "score1"); ok {
		score := s
		match.Score1 = &score
	}
	if s, ok := intField(obj, "team2Score", "score2"); ok {
		score := s
		match.Score2 = &score
	}

	if id, ok := intField(obj, "winnerTeamId", "winnerId"); ok {
		winner := id
		match.WinnerTeamID = &winner
	} else if w, ok := obj["winner"].(map[string]interface{}); ok {
		if id, ok := intField(w, "id"); ok {
			winner := id
			match.WinnerTeamID = &winner
		}
	}

	if raw, ok := stringField(obj, "status"); ok {
		match.Status = normalizeStatus(raw)
	}

	if raw, ok := stringField(obj, "scheduledAt", "date"); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			match.ScheduledAt = &t
		}
	}
	if loc, ok := stringField(obj, "location"); ok && loc != "" {
		match.Location = &loc
	}

	return match
}

func normalizeStatus(raw string) models.MatchStatus {
	switch status := models.NormalizeMatchStatus(raw); status {
	case models.MatchScheduled, models.MatchInProgress, models.MatchCompleted, models.MatchCancelled:
		return status
	default:
		// Unknown statuses degrade to the placeholder state.
		return models.MatchScheduled
	}
}

func normalizeSlot(obj map[string]interface{}, keys ...string) models.TeamSlot {
	for _, key := range keys {
		raw, ok := obj[key].(map[string]interface{})
		if !ok {
			continue
		}
		team := normalizeTeam(raw)
		if team == nil {
			continue
		}
		// Only approved teams occupy a generated slot; anything else stays TBD.
		if team.RegistrationStatus != "" && team.RegistrationStatus != models.TeamApproved {
			return models.TeamSlot{}
		}
		return models.TeamSlot{Team: team}
	}
	return models.TeamSlot{}
}

func normalizeTeam(obj map[string]interface{}) *models.Team {
	id, ok := intField(obj, "id", "teamId")
	if !ok {
		return nil
	}
	team := &models.Team{ID: id}
	if name, ok := stringField(obj, "name", "teamName"); ok {
		team.Name = name
	}
	if color, ok := stringField(obj, "color"); ok {
		team.Color = color
	}
	if status, ok := stringField(obj, "registrationStatus", "status"); ok {
		team.RegistrationStatus = models.TeamRegistrationStatus(status)
	}
	return team
}

// NormalizeTournament probes a raw payload for a tournament object. The
// service wraps single entities in the same drifting envelopes as brackets:
// {data:{tournament:…}}, {data:…}, {tournament:…} or the bare object.
func NormalizeTournament(payload json.RawMessage) (*models.Tournament, bool) {
	obj, ok := unwrapObject(payload, "tournament")
	if !ok {
		return nil, false
	}

	id, ok := intField(obj, "id", "tournamentId")
	if !ok {
		return nil, false
	}

	t := &models.Tournament{ID: id}
	if name, ok := stringField(obj, "name"); ok {
		t.Name = name
	}
	if status, ok := stringField(obj, "status"); ok {
		t.Status = models.NormalizeTournamentStatus(status)
	}
	if n, ok := intField(obj, "maxTeams", "max_teams"); ok {
		t.MaxTeams = n
	}
	if n, ok := intField(obj, "currentTeams", "current_teams"); ok {
		t.CurrentTeams = n
	}
	if n, ok := intField(obj, "currentRound", "current_round"); ok {
		t.CurrentRound = n
	}
	t.StartDate = timeField(obj, "startDate", "start_date")
	t.EndDate = timeField(obj, "endDate", "end_date")
	t.RegistrationDeadline = timeField(obj, "registrationDeadline", "registration_deadline")
	for _, key := range []string{"winnerTeam", "winner_team", "winner"} {
		if raw, ok := obj[key].(map[string]interface{}); ok {
			t.WinnerTeam = normalizeTeam(raw)
			break
		}
	}
	return t, true
}

// NormalizeMatchList probes a raw payload for a match array.
func NormalizeMatchList(payload json.RawMessage) ([]models.Match, bool) {
	var root interface{}
	if len(payload) == 0 || json.Unmarshal(payload, &root) != nil {
		return nil, false
	}

	var rawMatches []interface{}
	switch v := root.(type) {
	case []interface{}:
		rawMatches = v
	case map[string]interface{}:
		for _, path := range [][]string{{"data", "matches"}, {"matches"}, {"data"}} {
			if arr, ok := dig(v, path); ok {
				rawMatches = arr
				break
			}
		}
	}
	if rawMatches == nil {
		return nil, false
	}

	matches := make([]models.Match, 0, len(rawMatches))
	for _, entry := range rawMatches {
		matches = append(matches, NormalizeMatch(entry))
	}
	return matches, true
}

// NormalizeSingleMatch probes a raw payload for one match object, as returned
// by the score and status update endpoints.
func NormalizeSingleMatch(payload json.RawMessage) (*models.Match, bool) {
	obj, ok := unwrapObject(payload, "match")
	if !ok {
		return nil, false
	}
	match := NormalizeMatch(obj)
	return &match, true
}

func unwrapObject(payload json.RawMessage, entityKey string) (map[string]interface{}, bool) {
	var root interface{}
	if len(payload) == 0 || json.Unmarshal(payload, &root) != nil {
		return nil, false
	}
	obj, ok := root.(map[string]interface{})
	if !ok {
		return nil, false
	}
	if data, ok := obj["data"].(map[string]interface{}); ok {
		obj = data
	}
	if entity, ok := obj[entityKey].(map[string]interface{}); ok {
		obj = entity
	}
	return obj, true
}

func timeField(obj map[string]interface{}, keys ...string) *time.Time {
	raw, ok := stringField(obj, keys...)
	if !ok {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return nil
}

// RoundsFromMatches reconstructs rounds from a flat match list for tournaments
// where the bracket endpoint returns nothing but matches carry round numbers.
func RoundsFromMatches(matches []models.Match) []models.Round {
	if len(matches) == 0 {
		return nil
	}

	byRound := make(map[int][]models.Match)
	names := make(map[int]string)
	for _, m := range matches {
		number := m.Round
		if number <= 0 {
			number = 1
		}
		byRound[number] = append(byRound[number], m)
		if m.RoundName != "" && names[number] == "" {
			names[number] = m.RoundName
		}
	}

	numbers := make([]int, 0, len(byRound))
	for n := range byRound {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	rounds := make([]models.Round, 0, len(numbers))
	for _, n := range numbers {
		ms := byRound[n]
		sort.SliceStable(ms, func(i, j int) bool {
			if ms[i].MatchNumber != ms[j].MatchNumber {
				return ms[i].MatchNumber < ms[j].MatchNumber
			}
			return ms[i].ID < ms[j].ID
		})
		name := names[n]
		if name == "" {
			name = fmt.Sprintf("Round %d", n)
		}
		rounds = append(rounds, models.Round{Number: n, Name: name, Matches: ms})
	}
	return rounds
}

// stringField returns the first present string value among keys.
func stringField(obj map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			return s, true
		}
	}
	return "", false
}

// intField returns the first present numeric value among keys. JSON numbers
// arrive as float64; numeric strings are tolerated, anything else is skipped.
func intField(obj map[string]interface{}, keys ...string) (int, bool) {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case float64:
			return int(v), true
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
