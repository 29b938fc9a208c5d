package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracketops/bracket-console/brackets"
	"github.com/bracketops/bracket-console/client"
	"github.com/bracketops/bracket-console/handlers"
	"github.com/bracketops/bracket-console/models"
	"github.com/bracketops/bracket-console/routes"
	"github.com/bracketops/bracket-console/services"
)

type stubAPI struct {
	mu               sync.Mutex
	tournament       models.Tournament
	bracket          json.RawMessage
	updateScoreCalls int
}

func (s *stubAPI) FetchTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := s.tournament
	return &copied, nil
}

func (s *stubAPI) FetchMatches(ctx context.Context, tournamentID int) ([]models.Match, error) {
	return nil, nil
}

func (s *stubAPI) FetchBracket(ctx context.Context, tournamentID int) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bracket, nil
}

func (s *stubAPI) UpdateMatchScore(ctx context.Context, matchID int, update client.ScoreUpdate) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateScoreCalls++
	return &models.Match{ID: matchID, Status: update.Status}, nil
}

func (s *stubAPI) UpdateMatchStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error) {
	return &models.Match{ID: matchID, Status: status}, nil
}

func (s *stubAPI) AdvanceRound(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournament.CurrentRound++
	copied := s.tournament
	return &copied, nil
}

func (s *stubAPI) CompleteTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournament.Status = models.TournamentCompleted
	copied := s.tournament
	return &copied, nil
}

const finalRoundBracket = `{"data":{"bracket":{"rounds":[
	{"name":"Final","matches":[
		{"id":3,"team1":{"id":10,"name":"A"},"team2":{"id":13,"name":"D"},
		 "team1Score":3,"team2Score":2,"status":"COMPLETED","winnerTeamId":10}
	]}
]}}}`

type testServer struct {
	api       *stubAPI
	refresher *services.RefreshController
	server    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithOrigin(t, "*")
}

func newTestServerWithOrigin(t *testing.T, allowedOrigin string) *testServer {
	t.Helper()
	api := &stubAPI{
		tournament: models.Tournament{ID: 1, Name: "Spring Cup", Status: models.TournamentOngoing, CurrentRound: 1},
		bracket:    json.RawMessage(finalRoundBracket),
	}

	hub := brackets.NewHub(nil)
	go hub.Run()

	refresher := services.NewRefreshController(api, hub, 1, time.Second, nil)
	progression := services.NewProgression(api, refresher, 1, nil)
	editor := services.NewScoreEditor(api, refresher, nil)

	router := chi.NewRouter()
	routes.SetupRoutes(router, allowedOrigin,
		handlers.NewBracketHandler(refresher, 1),
		handlers.NewProgressionHandler(progression, 1),
		handlers.NewScoreEditHandler(editor),
		handlers.NewWebSocketHandler(hub, refresher, 1, allowedOrigin, nil),
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{api: api, refresher: refresher, server: server}
}

func (ts *testServer) request(t *testing.T, method, path, body string) (*http.Response, jsonBody) {
	t.Helper()
	var reqBody *strings.Reader
	if body == "" {
		reqBody = strings.NewReader("")
	} else {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, reqBody)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded jsonBody
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

type jsonBody map[string]interface{}

func TestGetSnapshot_BeforeFirstRefresh(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodGet, "/tournaments/1/bracket", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestRefreshThenGetSnapshot(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.request(t, http.MethodPost, "/tournaments/1/bracket/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "snapshot")

	resp, body = ts.request(t, http.MethodGet, "/tournaments/1/bracket", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["auto_refresh"])
	assert.Equal(t, float64(1), body["interval_seconds"])

	snapshot, ok := body["snapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(services.RoundFinalizable), snapshot["round_state"])
}

func TestSnapshot_WrongTournament(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.request(t, http.MethodGet, "/tournaments/2/bracket", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.request(t, http.MethodGet, "/tournaments/abc/bracket", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetAutoRefresh_Validation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.request(t, http.MethodPut, "/tournaments/1/bracket/auto-refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.request(t, http.MethodPut, "/tournaments/1/bracket/auto-refresh", `{"enabled":false,"bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := ts.request(t, http.MethodPut, "/tournaments/1/bracket/auto-refresh", `{"enabled":false,"interval_seconds":30}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["auto_refresh"])
	assert.Equal(t, float64(30), body["interval_seconds"])
}

func TestAdvance_OnFinalRound(t *testing.T) {
	ts := newTestServer(t)
	ts.request(t, http.MethodPost, "/tournaments/1/bracket/refresh", "")

	// The only round is the final; advancing is a precondition failure even
	// when confirmed.
	resp, _ := ts.request(t, http.MethodPost, "/tournaments/1/advance", `{"confirmed":true}`)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
}

func TestComplete_RequiresConfirmation(t *testing.T) {
	ts := newTestServer(t)
	ts.request(t, http.MethodPost, "/tournaments/1/bracket/refresh", "")

	resp, _ := ts.request(t, http.MethodPost, "/tournaments/1/complete", `{"confirmed":false}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body := ts.request(t, http.MethodPost, "/tournaments/1/complete", `{"confirmed":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tournament, ok := body["tournament"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(models.TournamentCompleted), tournament["status"])
}

func TestScoreEditFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.request(t, http.MethodPost, "/tournaments/1/bracket/refresh", "")

	resp, body := ts.request(t, http.MethodPost, "/matches/3/edit", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Contains(t, body, "draft")

	resp, _ = ts.request(t, http.MethodPut, "/matches/3/edit", `{"side":1,"value":4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = ts.request(t, http.MethodPut, "/matches/3/edit", `{"side":2,"value":4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Tied draft is rejected locally.
	resp, _ = ts.request(t, http.MethodPost, "/matches/3/edit/submit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Zero(t, ts.api.updateScoreCalls)

	resp, _ = ts.request(t, http.MethodPut, "/matches/3/edit", `{"side":2,"value":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ts.request(t, http.MethodPost, "/matches/3/edit/submit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "match")
	assert.Equal(t, 1, ts.api.updateScoreCalls)
}

func TestServeWs_OriginAllowlist(t *testing.T) {
	const origin = "http://console.local"
	ts := newTestServerWithOrigin(t, origin)
	ts.request(t, http.MethodPost, "/tournaments/1/bracket/refresh", "")

	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws/tournaments/1"

	// A foreign origin is rejected before the upgrade.
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The configured origin connects and gets the current snapshot pushed.
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{origin}})
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event brackets.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, brackets.EventBracketSnapshot, event.Type)
}

func TestCancelEdit_NoContent(t *testing.T) {
	ts := newTestServer(t)
	ts.request(t, http.MethodPost, "/tournaments/1/bracket/refresh", "")

	resp, _ := ts.request(t, http.MethodPost, "/matches/3/edit", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = ts.request(t, http.MethodDelete, "/matches/3/edit", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ts.request(t, http.MethodDelete, "/matches/3/edit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
