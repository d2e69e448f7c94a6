// Package jobwatch tracks the server's indexing job by polling.
//
// A Poller is idle until Trigger (or Resume) opens a cycle. While a cycle is
// active a single goroutine fetches the job status every Interval and
// replaces the held snapshot with each result. The cycle ends when the
// server reports the job is no longer running; polling then stops until the
// next trigger.
//
// Every fetch is tagged with the cycle it belongs to. A result whose cycle
// is no longer current, or that arrives after Close, is discarded.
package jobwatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/ftpfinder/pkg/api"
)

const (
	// DefaultInterval is the polling cadence while a cycle is active.
	DefaultInterval = time.Second

	// DefaultFetchTimeout bounds a single status fetch.
	DefaultFetchTimeout = 3 * time.Second

	eventBuffer = 64
)

var (
	// ErrAlreadyActive is returned by Trigger while a cycle is active.
	ErrAlreadyActive = errors.New("indexing job already being watched")

	// ErrNotAuthenticated is returned by Trigger without a session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("poller closed")
)

// Client is the subset of the API the poller calls.
type Client interface {
	IndexStatus(ctx context.Context) (*api.JobSnapshot, error)
	TriggerIndex(ctx context.Context) error
}

// Gate reports whether privileged operations are allowed.
type Gate interface {
	Authenticated() bool
}

// Config configures a Poller.
type Config struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	Logger       *zap.Logger
}

// Poller watches the indexing job. It is safe for concurrent use.
type Poller struct {
	client       Client
	gate         Gate
	interval     time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	// sendMu serializes sends with Close; stopped is set once Close has
	// drained the buffer.
	sendMu  sync.Mutex
	stopped bool

	mu       sync.Mutex
	cycle    uint64
	phase    Phase
	snapshot *api.JobSnapshot
	cancel   context.CancelFunc
	closed   bool
}

// New returns an idle Poller.
func New(client Client, gate Gate, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Poller{
		client:       client,
		gate:         gate,
		interval:     cfg.Interval,
		fetchTimeout: cfg.FetchTimeout,
		logger:       cfg.Logger,
		events:       make(chan Event, eventBuffer),
		done:         make(chan struct{}),
	}
}

// Events returns the event stream. It is never closed; select on Done to
// stop reading.
func (p *Poller) Events() <-chan Event {
	return p.events
}

// Done is closed by Close.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Snapshot returns a copy of the current cycle's latest snapshot, or nil
// before the first one arrives.
func (p *Poller) Snapshot() *api.JobSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot.Clone()
}

// Phase returns the current phase.
func (p *Poller) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Active reports whether a cycle is open (starting or running).
func (p *Poller) Active() bool {
	return p.Phase() != PhaseIdle
}

// Cycle returns the most recently opened cycle token. Zero means no cycle
// has been opened.
func (p *Poller) Cycle() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycle
}

// Trigger asks the server to start the job and opens a new cycle. The
// poller is in PhaseStarting before the request is sent. If a cycle is
// already active the current token is returned with ErrAlreadyActive and
// nothing is sent.
//
// When the start request fails the cycle ends immediately: an
// EventTriggerFailed is emitted and no finished event follows.
func (p *Poller) Trigger(ctx context.Context) (uint64, error) {
	if p.gate == nil || !p.gate.Authenticated() {
		return 0, ErrNotAuthenticated
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrClosed
	}
	if p.phase != PhaseIdle {
		cycle := p.cycle
		p.mu.Unlock()
		return cycle, ErrAlreadyActive
	}
	p.cycle++
	cycle := p.cycle
	p.phase = PhaseStarting
	p.snapshot = nil
	p.mu.Unlock()

	p.logger.Info("Triggering indexing job", zap.Uint64("cycle", cycle))

	if err := p.client.TriggerIndex(ctx); err != nil {
		p.logger.Warn("Trigger failed", zap.Uint64("cycle", cycle), zap.Error(err))
		p.mu.Lock()
		ended := p.cycle == cycle && p.phase == PhaseStarting && !p.closed
		if ended {
			p.phase = PhaseIdle
		}
		p.mu.Unlock()
		if ended {
			p.emit(Event{Cycle: cycle, Kind: EventTriggerFailed, Err: err})
		}
		return cycle, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.cycle != cycle {
		return cycle, ErrClosed
	}
	p.startLocked(cycle)
	return cycle, nil
}

// Resume adopts a job that is already running on the server, for example
// one started by another client. It performs one status fetch; if the job
// is running a new cycle opens in PhaseRunning without sending a trigger.
// It reports whether a cycle is active on return.
func (p *Poller) Resume(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, ErrClosed
	}
	if p.phase != PhaseIdle {
		p.mu.Unlock()
		return true, nil
	}
	p.mu.Unlock()

	snap, err := p.fetch(ctx)
	if err != nil {
		return false, err
	}
	if !snap.IsRunning {
		return false, nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, ErrClosed
	}
	if p.phase != PhaseIdle {
		p.mu.Unlock()
		return true, nil
	}
	p.cycle++
	cycle := p.cycle
	p.phase = PhaseRunning
	p.snapshot = snap.Clone()
	p.startLocked(cycle)
	p.mu.Unlock()

	p.logger.Info("Resumed watching running job", zap.Uint64("cycle", cycle))
	p.emit(Event{Cycle: cycle, Kind: EventSnapshot, Snapshot: snap.Clone()})
	return true, nil
}

// Refresh fetches the job status once. It does not touch the poller's
// phase or snapshot and emits nothing.
func (p *Poller) Refresh(ctx context.Context) (*api.JobSnapshot, error) {
	return p.fetch(ctx)
}

// Close stops any active cadence and waits for it to exit. Events still
// buffered are discarded. After Close no fetch updates state and no events
// are delivered.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.phase = PhaseIdle
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	close(p.done)
	p.mu.Unlock()

	p.sendMu.Lock()
	p.stopped = true
	for drained := false; !drained; {
		select {
		case <-p.events:
		default:
			drained = true
		}
	}
	p.sendMu.Unlock()

	p.wg.Wait()
}

// startLocked launches the cadence for cycle. Caller holds p.mu.
func (p *Poller) startLocked(cycle uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(ctx, cycle)
}

func (p *Poller) run(ctx context.Context, cycle uint64) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, err := p.fetch(ctx)
		if !p.apply(cycle, snap, err) {
			return
		}
	}
}

func (p *Poller) fetch(ctx context.Context) (*api.JobSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()
	return p.client.IndexStatus(ctx)
}

// apply folds one fetch result into the poller and reports whether the
// cadence for cycle should continue.
func (p *Poller) apply(cycle uint64, snap *api.JobSnapshot, err error) bool {
	p.mu.Lock()
	if p.closed || cycle != p.cycle || p.phase == PhaseIdle {
		p.mu.Unlock()
		p.logger.Debug("Discarding stale status", zap.Uint64("cycle", cycle))
		return false
	}

	if err != nil {
		p.mu.Unlock()
		p.logger.Warn("Status fetch failed", zap.Uint64("cycle", cycle), zap.Error(err))
		p.emit(Event{Cycle: cycle, Kind: EventFetchFailed, Err: err})
		return true
	}

	p.snapshot = snap.Clone()
	if snap.IsRunning {
		p.phase = PhaseRunning
		p.mu.Unlock()
		p.emit(Event{Cycle: cycle, Kind: EventSnapshot, Snapshot: snap.Clone()})
		return true
	}

	p.phase = PhaseIdle
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.logger.Info("Indexing job finished",
		zap.Uint64("cycle", cycle),
		zap.Int("directories_found", snap.DirectoriesFound))
	p.emit(Event{Cycle: cycle, Kind: EventSnapshot, Snapshot: snap.Clone()})
	p.emit(Event{Cycle: cycle, Kind: EventFinished, Snapshot: snap.Clone()})
	return false
}

func (p *Poller) emit(ev Event) {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if p.stopped {
		return
	}
	select {
	case p.events <- ev:
	case <-p.done:
	}
}
