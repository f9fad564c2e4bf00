// Package timeline drives snapshot reconstruction while a viewer scrubs or
// autoplays through a user's history. Each viewer owns its Controller, no
// state is shared between controllers.
package timeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"coachgraph/src/domain"
	"coachgraph/src/domain/entities"
	"coachgraph/src/helper/clock"
)

const (
	// FrameInterval is the minimum real time between two playback advances.
	FrameInterval = 50 * time.Millisecond
	// SnapshotInterval is the minimum real time between two snapshot fetches.
	SnapshotInterval = 500 * time.Millisecond
	// frameRate is how often the loop started by Start calls Tick.
	frameRate = 16 * time.Millisecond
)

var ErrClosed = errors.New("timeline controller closed")

type SnapshotFetcher interface {
	GetSnapshot(ctx context.Context, userID string, at time.Time) (*domain.Snapshot, error)
}

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// State is a copy of the controller's view model.
type State struct {
	CurrentTime     time.Time        `json:"current_time"`
	IsPlaying       bool             `json:"is_playing"`
	PlaybackSpeed   float64          `json:"playback_speed"`
	TimeRange       TimeRange        `json:"time_range"`
	SelectedSession *entities.Node   `json:"selected_session,omitempty"`
	Snapshot        *domain.Snapshot `json:"snapshot,omitempty"`
	// Err is the last snapshot failure, cleared by the next success.
	Err error `json:"-"`
}

type Options struct {
	UserID    string
	TimeRange TimeRange
	// CurrentTime defaults to TimeRange.End.
	CurrentTime   time.Time
	PlaybackSpeed float64
	Fetcher       SnapshotFetcher
	Clock         clock.Clock
	Logger        *slog.Logger
	// OnUpdate is called, outside the controller lock, after every applied
	// snapshot or snapshot failure.
	OnUpdate func(State)
}

type Controller struct {
	mu sync.Mutex

	userID   string
	fetcher  SnapshotFetcher
	clock    clock.Clock
	logger   *slog.Logger
	onUpdate func(State)

	ctx    context.Context
	cancel context.CancelFunc

	currentTime     time.Time
	isPlaying       bool
	playbackSpeed   float64
	timeRange       TimeRange
	selectedSession *entities.Node
	snapshot        *domain.Snapshot
	err             error

	lastTick   time.Time
	frameTimer clock.Timer
	running    bool
	closed     bool

	scheduler *snapshotScheduler
	// issuedSeq is the sequence of the latest fetch, older responses are dropped.
	issuedSeq uint64
}

// NewController builds a paused controller and fetches the first snapshot.
func NewController(opts Options) (*Controller, error) {
	const op = "timeline.NewController"

	if opts.UserID == "" {
		return nil, domain.NewValidationError(op, "user_id is required")
	}
	if opts.Fetcher == nil {
		return nil, domain.NewValidationError(op, "snapshot fetcher is required")
	}
	if opts.TimeRange.End.Before(opts.TimeRange.Start) {
		return nil, domain.NewValidationError(op, "time range end must not be before its start")
	}
	speed := opts.PlaybackSpeed
	if speed == 0 {
		speed = 1
	}
	if err := validateSpeed(op, speed); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	current := opts.CurrentTime
	if current.IsZero() {
		current = opts.TimeRange.End
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		userID:        opts.UserID,
		fetcher:       opts.Fetcher,
		clock:         opts.Clock,
		logger:        opts.Logger,
		onUpdate:      opts.OnUpdate,
		ctx:           ctx,
		cancel:        cancel,
		currentTime:   current,
		playbackSpeed: speed,
		timeRange:     opts.TimeRange,
	}
	c.scheduler = newSnapshotScheduler(c.clock, SnapshotInterval, c.mu.Lock, c.mu.Unlock, c.fetch)

	c.mu.Lock()
	c.scheduler.request(c.currentTime)
	c.mu.Unlock()
	return c, nil
}

func validateSpeed(op string, speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return domain.NewValidationError(op, "playback speed must be a positive number")
	}
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		CurrentTime:     c.currentTime,
		IsPlaying:       c.isPlaying,
		PlaybackSpeed:   c.playbackSpeed,
		TimeRange:       c.timeRange,
		SelectedSession: c.selectedSession,
		Snapshot:        c.snapshot,
		Err:             c.err,
	}
}

// Err returns the last snapshot failure, nil after a successful fetch.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// TogglePlayPause flips playback. Starting from the end of the range rewinds
// to its start first.
func (c *Controller) TogglePlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if c.isPlaying {
		c.isPlaying = false
		return nil
	}

	if !c.currentTime.Before(c.timeRange.End) {
		c.currentTime = c.timeRange.Start
		c.scheduler.request(c.currentTime)
	}
	c.isPlaying = true
	c.lastTick = c.clock.Now()
	return nil
}

// SetPlaybackSpeed takes effect on the next tick.
func (c *Controller) SetPlaybackSpeed(speed float64) error {
	if err := validateSpeed("Controller.SetPlaybackSpeed", speed); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.playbackSpeed = speed
	return nil
}

// SetCurrentTime seeks without clamping; callers keep t inside the range.
func (c *Controller) SetCurrentTime(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.currentTime = t
	c.scheduler.request(t)
	return nil
}

// SelectSession jumps to the creation time of the session node.
func (c *Controller) SelectSession(session entities.Node) error {
	if session.NodeType != entities.NodeTypeSession {
		return domain.NewValidationError("Controller.SelectSession", "node %s is not a session", session.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.selectedSession = &session
	c.currentTime = session.CreatedAt
	c.scheduler.request(c.currentTime)
	return nil
}

// Tick advances playback by the real time elapsed since the previous applied
// tick times the playback speed. Ticks closer than FrameInterval to the
// previous one are skipped.
func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.isPlaying {
		return
	}

	delta := now.Sub(c.lastTick)
	if delta < FrameInterval {
		return
	}
	c.lastTick = now

	// Em float64: delta * speed pode estourar int64.
	advance := float64(delta) * c.playbackSpeed
	next := c.timeRange.End
	if advance < float64(c.timeRange.End.Sub(c.currentTime)) {
		next = c.currentTime.Add(time.Duration(advance))
	}
	if !next.Before(c.timeRange.End) {
		next = c.timeRange.End
		c.isPlaying = false
	}
	c.currentTime = next
	c.scheduler.request(next)
}

// Start runs the frame loop on the controller's clock until Close.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.running {
		return
	}
	c.running = true
	c.frameTimer = c.clock.AfterFunc(frameRate, c.frame)
}

func (c *Controller) frame() {
	c.Tick(c.clock.Now())

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.frameTimer = c.clock.AfterFunc(frameRate, c.frame)
}

// Run starts the frame loop and blocks until ctx is done, then closes the
// controller.
func (c *Controller) Run(ctx context.Context) {
	c.Start()
	select {
	case <-ctx.Done():
	case <-c.ctx.Done():
	}
	c.Close()
}

// Close stops the frame loop, cancels the pending snapshot timer and any
// in-flight fetch. Late responses are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.isPlaying = false
	if c.frameTimer != nil {
		c.frameTimer.Stop()
		c.frameTimer = nil
	}
	c.scheduler.stop()
	c.cancel()
}

// fetch is called by the scheduler with the lock held.
func (c *Controller) fetch(at time.Time) {
	c.issuedSeq++
	seq := c.issuedSeq

	go func() {
		snapshot, err := c.fetcher.GetSnapshot(c.ctx, c.userID, at)
		c.apply(seq, at, snapshot, err)
	}()
}

func (c *Controller) apply(seq uint64, at time.Time, snapshot *domain.Snapshot, err error) {
	c.mu.Lock()
	if c.closed || seq != c.issuedSeq {
		c.mu.Unlock()
		c.logger.Debug("Discarding stale snapshot", "user_id", c.userID, "at", at, "seq", seq)
		return
	}

	if err != nil {
		// Posição e estado de playback ficam como estão, so does the last good snapshot.
		c.err = err
		c.logger.Warn("Snapshot fetch failed", "user_id", c.userID, "at", at, "error", err)
	} else {
		c.err = nil
		c.snapshot = snapshot
	}
	state := c.stateLocked()
	onUpdate := c.onUpdate
	c.mu.Unlock()

	if onUpdate != nil {
		onUpdate(state)
	}
}
