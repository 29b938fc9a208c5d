package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bracketops/bracket-console/brackets"
	"github.com/bracketops/bracket-console/client"
	"github.com/bracketops/bracket-console/models"
)

const minRefreshInterval = time.Second

// Snapshot is one immutable published view: the canonical model, the
// tournament it was built from and the actions legal at that instant.
type Snapshot struct {
	Seq             int64                `json:"seq"`
	Tournament      *models.Tournament   `json:"tournament"`
	Bracket         *models.BracketModel `json:"bracket,omitempty"`
	HasBracket      bool                 `json:"has_bracket"`
	RoundState      RoundState           `json:"round_state"`
	CanAdvanceRound bool                 `json:"can_advance_round"`
	CanComplete     bool                 `json:"can_complete"`
	RefreshedAt     time.Time            `json:"refreshed_at"`
}

// RefreshController keeps the published snapshot live: a ticker-driven
// re-fetch pipeline (fetch → normalize → build → publish), a manual refresh
// command and an auto-refresh toggle. It is the only writer of the snapshot.
type RefreshController struct {
	api          client.TournamentAPI
	hub          *brackets.Hub
	logger       *slog.Logger
	tournamentID int

	seq int64 // monotonically increasing refresh sequence

	mu          sync.Mutex
	current     *Snapshot
	lastErr     error
	enabled     bool
	interval    time.Duration
	running     bool
	stopCh      chan struct{}
	intervalCh  chan time.Duration
	subscribers map[int]chan Snapshot
	nextSubID   int
}

func NewRefreshController(api client.TournamentAPI, hub *brackets.Hub, tournamentID int, interval time.Duration, logger *slog.Logger) *RefreshController {
	if logger == nil {
		logger = slog.Default()
	}
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}
	return &RefreshController{
		api:          api,
		hub:          hub,
		logger:       logger,
		tournamentID: tournamentID,
		enabled:      true,
		interval:     interval,
		intervalCh:   make(chan time.Duration, 1),
		subscribers:  make(map[int]chan Snapshot),
	}
}

// Start launches the refresh loop. Starting an already-running controller is
// a no-op.
func (c *RefreshController) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	interval := c.interval
	c.mu.Unlock()

	go c.run(stopCh, interval)
	c.logger.Info("refresh controller started",
		slog.Int("tournament_id", c.tournamentID),
		slog.Duration("interval", interval))
}

// Stop tears the refresh loop down. An in-flight refresh is not cancelled;
// its result is still applied subject to the staleness rule.
func (c *RefreshController) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	c.logger.Info("refresh controller stopped", slog.Int("tournament_id", c.tournamentID))
}

func (c *RefreshController) run(stopCh chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First snapshot without waiting a full interval, honoring the toggle the
	// same way the tick path does.
	if c.AutoRefreshEnabled() {
		c.tickRefresh()
	}

	for {
		select {
		case <-stopCh:
			return
		case d := <-c.intervalCh:
			ticker.Reset(d)
		case <-ticker.C:
			if !c.AutoRefreshEnabled() {
				continue
			}
			c.tickRefresh()
		}
	}
}

func (c *RefreshController) tickRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := c.RefreshNow(ctx); err != nil {
		// Keep the cadence: transient failures never disable the timer.
		c.logger.Error("scheduled refresh failed",
			slog.Int("tournament_id", c.tournamentID), slog.Any("error", err))
	}
}

// SetAutoRefresh toggles scheduled refreshes. Disabling stops future fetches
// only; it never cancels one already in flight.
func (c *RefreshController) SetAutoRefresh(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
	c.logger.Info("auto refresh toggled", slog.Bool("enabled", enabled))
}

func (c *RefreshController) AutoRefreshEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetInterval changes the refresh cadence. Intervals below one second are
// clamped.
func (c *RefreshController) SetInterval(interval time.Duration) {
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}
	c.mu.Lock()
	c.interval = interval
	running := c.running
	c.mu.Unlock()

	if running {
		// Replace any pending reset rather than blocking.
		select {
		case <-c.intervalCh:
		default:
		}
		c.intervalCh <- interval
	}
}

func (c *RefreshController) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Current returns the latest published snapshot.
func (c *RefreshController) Current() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Snapshot{}, false
	}
	return *c.current, true
}

// LastError reports the most recent refresh failure, cleared by the next
// successful refresh.
func (c *RefreshController) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe registers a snapshot observer. The returned cancel func must be
// called on teardown. Slow observers miss snapshots instead of blocking the
// publisher.
func (c *RefreshController) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	ch := make(chan Snapshot, 8)
	c.subscribers[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// RefreshNow runs one full refresh cycle: parallel fetch of tournament,
// matches and bracket, then normalize, build and publish. On failure the
// previously published snapshot is retained untouched.
func (c *RefreshController) RefreshNow(ctx context.Context) (*Snapshot, error) {
	seq := atomic.AddInt64(&c.seq, 1)

	var (
		tournament *models.Tournament
		matches    []models.Match
		rawBracket []byte
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := c.api.FetchTournament(gctx, c.tournamentID)
		if err != nil {
			return fmt.Errorf("fetch tournament: %w", err)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		m, err := c.api.FetchMatches(gctx, c.tournamentID)
		if err != nil {
			return fmt.Errorf("fetch matches: %w", err)
		}
		matches = m
		return nil
	})
	g.Go(func() error {
		raw, err := c.api.FetchBracket(gctx, c.tournamentID)
		if err != nil {
			return fmt.Errorf("fetch bracket: %w", err)
		}
		rawBracket = raw
		return nil
	})

	if err := g.Wait(); err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		return nil, err
	}

	snapshot := c.buildSnapshot(seq, tournament, matches, rawBracket)
	return c.publish(snapshot)
}

func (c *RefreshController) buildSnapshot(seq int64, tournament *models.Tournament, matches []models.Match, rawBracket []byte) Snapshot {
	normalized := brackets.NormalizeBracket(rawBracket)
	rounds := normalized.Rounds
	hasBracket := normalized.Found

	// Older service versions return matches with round numbers but no bracket
	// endpoint payload; reconstruct the rounds from the flat list.
	if !hasBracket && len(matches) > 0 {
		if derived := brackets.RoundsFromMatches(matches); len(derived) > 0 {
			rounds = derived
			hasBracket = true
		}
	}

	snapshot := Snapshot{
		Seq:         seq,
		Tournament:  tournament,
		HasBracket:  hasBracket,
		RoundState:  RoundStateNone,
		RefreshedAt: time.Now(),
	}
	if hasBracket {
		model := brackets.BuildModel(rounds, c.logger)
		snapshot.Bracket = &model
		snapshot.RoundState = EvaluateRound(tournament, &model)
		snapshot.CanAdvanceRound = snapshot.RoundState == RoundAdvanceable
		snapshot.CanComplete = snapshot.RoundState == RoundFinalizable
	}
	return snapshot
}

// publish applies arrival-order semantics: a refresh that started before the
// currently published one is stale and discarded, so a slow response can
// never rewind the model.
func (c *RefreshController) publish(snapshot Snapshot) (*Snapshot, error) {
	c.mu.Lock()
	if c.current != nil && snapshot.Seq < c.current.Seq {
		stale := snapshot.Seq
		current := *c.current
		c.mu.Unlock()
		c.logger.Warn("discarding stale refresh result",
			slog.Int64("stale_seq", stale),
			slog.Int64("published_seq", current.Seq))
		return &current, nil
	}
	c.current = &snapshot
	c.lastErr = nil
	// Deliver under the lock so an unsubscribe cannot close a channel
	// mid-send; sends never block, slow observers just miss this snapshot.
	for _, ch := range c.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
	c.mu.Unlock()
	if c.hub != nil {
		c.hub.BroadcastToRoom(RoomID(c.tournamentID), brackets.Event{
			Type:    brackets.EventBracketSnapshot,
			Payload: snapshot,
		})
	}
	return &snapshot, nil
}

// RoomID names the websocket room for a tournament.
func RoomID(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}
