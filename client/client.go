// Package client is the HTTP client for the remote tournament service. It
// owns transport concerns only; payload shapes are handled by the brackets
// normalizer so that nothing downstream touches raw API output.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bracketops/bracket-console/brackets"
	"github.com/bracketops/bracket-console/models"
)

// ScoreUpdate is the body of a match score submission.
type ScoreUpdate struct {
	Team1Score int                `json:"team1Score"`
	Team2Score int                `json:"team2Score"`
	Status     models.MatchStatus `json:"status"`
}

// TournamentAPI is the surface the console consumes from the remote service.
type TournamentAPI interface {
	FetchTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
	FetchMatches(ctx context.Context, tournamentID int) ([]models.Match, error)
	FetchBracket(ctx context.Context, tournamentID int) (json.RawMessage, error)
	UpdateMatchScore(ctx context.Context, matchID int, update ScoreUpdate) (*models.Match, error)
	UpdateMatchStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error)
	AdvanceRound(ctx context.Context, tournamentID int) (*models.Tournament, error)
	CompleteTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
}

// APIError carries the HTTP status of a failed service call so handlers can
// distinguish upstream rejections from local failures.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tournament service returned %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	BaseURL           string
	Token             string
	HTTPClient        *http.Client
	Logger            *slog.Logger
	RequestsPerSecond float64
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:      strings.TrimSpace(cfg.Token),
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)),
		logger:     logger,
	}
	c.warnIfTokenExpiring()
	return c
}

// warnIfTokenExpiring parses the configured bearer token without verifying it
// (verification is the server's job) and logs when it is already expired or
// close to expiry, so operators find out before the first 401.
func (c *Client) warnIfTokenExpiring() {
	if c.token == "" || strings.Count(c.token, ".") != 2 {
		return
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, claims); err != nil {
		return
	}
	if claims.ExpiresAt == nil {
		return
	}
	switch remaining := time.Until(claims.ExpiresAt.Time); {
	case remaining <= 0:
		c.logger.Warn("API token is expired", slog.Time("expired_at", claims.ExpiresAt.Time))
	case remaining < 24*time.Hour:
		c.logger.Warn("API token expires soon", slog.Duration("remaining", remaining))
	}
}

func (c *Client) FetchTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tournaments/%d", tournamentID), nil)
	if err != nil {
		return nil, err
	}
	tournament, ok := brackets.NormalizeTournament(body)
	if !ok {
		return nil, fmt.Errorf("tournament %d: unrecognized tournament payload", tournamentID)
	}
	return tournament, nil
}

func (c *Client) FetchMatches(ctx context.Context, tournamentID int) ([]models.Match, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tournaments/%d/matches", tournamentID), nil)
	if err != nil {
		return nil, err
	}
	matches, ok := brackets.NormalizeMatchList(body)
	if !ok {
		// An unrecognized list payload means no matches, not a failure.
		return []models.Match{}, nil
	}
	return matches, nil
}

// FetchBracket returns the raw payload for the normalizer. A 404 means no
// bracket has been generated yet and yields an empty payload, not an error.
func (c *Client) FetchBracket(ctx context.Context, tournamentID int) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tournaments/%d/bracket", tournamentID), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) UpdateMatchScore(ctx context.Context, matchID int, update ScoreUpdate) (*models.Match, error) {
	body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/matches/%d/score", matchID), update)
	if err != nil {
		return nil, err
	}
	match, ok := brackets.NormalizeSingleMatch(body)
	if !ok {
		return nil, fmt.Errorf("match %d: unrecognized match payload", matchID)
	}
	return match, nil
}

func (c *Client) UpdateMatchStatus(ctx context.Context, matchID int, status models.MatchStatus) (*models.Match, error) {
	body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/matches/%d/status", matchID), map[string]models.MatchStatus{"status": status})
	if err != nil {
		return nil, err
	}
	match, ok := brackets.NormalizeSingleMatch(body)
	if !ok {
		return nil, fmt.Errorf("match %d: unrecognized match payload", matchID)
	}
	return match, nil
}

func (c *Client) AdvanceRound(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	return c.postTournamentCommand(ctx, tournamentID, "advance")
}

func (c *Client) CompleteTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	return c.postTournamentCommand(ctx, tournamentID, "complete")
}

func (c *Client) postTournamentCommand(ctx context.Context, tournamentID int, command string) (*models.Tournament, error) {
	body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tournaments/%d/%s", tournamentID, command), nil)
	if err != nil {
		return nil, err
	}
	tournament, ok := brackets.NormalizeTournament(body)
	if !ok {
		return nil, fmt.Errorf("tournament %d: unrecognized %s response", tournamentID, command)
	}
	return tournament, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	c.logger.Debug("tournament service call",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(started)))

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}
	return body, nil
}

func errorMessage(body []byte, statusCode int) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return http.StatusText(statusCode)
}
