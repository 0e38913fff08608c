// Package pool implements a bounded pool of terminals, for running TUI tests
// in parallel without allocating an unbounded number of pseudo-terminals.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joeycumines/go-tuitest/terminal"
)

// TerminalID identifies a pooled terminal.
type TerminalID string

// Pool is a bounded registry of terminals. It is safe for concurrent use.
//
// Terminals are never destroyed on release, only by Clear or Close.
type Pool struct {
	cfg     *config
	metrics *metrics
	mu      sync.Mutex
	// entries is in creation order, so that reuse is deterministic
	entries []*entry
	closed  bool
}

type entry struct {
	lastAcquired time.Time
	term         *terminal.Terminal
	id           TerminalID
	width        uint16
	height       uint16
	inUse        bool
	// releasing is set while Release resets the terminal
	releasing bool
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Total     int
	InUse     int
	Available int
	Capacity  int
}

// Summary formats s for humans.
func (s Stats) Summary() string {
	return fmt.Sprintf("Pool Stats: %d/%d in use, %d available (max: %d)", s.InUse, s.Total, s.Available, s.Capacity)
}

// New creates an empty pool. Terminals are created on demand.
func New(opts ...Option) (*Pool, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics(cfg.registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register pool metrics: %w", err)
	}
	p := &Pool{cfg: cfg, metrics: m}
	p.metrics.setTerminals(0, 0)
	return p, nil
}

// Acquire returns a terminal of the given size for exclusive use, until
// Release is called with the returned ID.
//
// A free terminal with matching dimensions is preferred. Otherwise, a new
// terminal is created if the pool is under capacity, or failing that a free
// terminal is resized. If every terminal is in use, Acquire polls until one
// is released, the acquire timeout elapses, or ctx is done.
func (p *Pool) Acquire(ctx context.Context, width, height uint16) (TerminalID, *terminal.Terminal, error) {
	if width == 0 || height == 0 {
		return "", nil, &terminal.DimensionError{Width: width, Height: height}
	}

	start := time.Now()
	for {
		id, term, result, err := p.tryAcquire(width, height)
		if err != nil {
			p.metrics.acquisitions.WithLabelValues(resultError).Inc()
			return "", nil, err
		}
		if term != nil {
			p.metrics.acquisitions.WithLabelValues(result).Inc()
			p.metrics.acquireWait.Observe(time.Since(start).Seconds())
			p.cfg.logger.Info().
				Str("id", string(id)).
				Str("result", result).
				Int("width", int(width)).
				Int("height", int(height)).
				Log("acquired terminal")
			return id, term, nil
		}

		elapsed := time.Since(start)
		if elapsed >= p.cfg.acquireTimeout {
			p.metrics.acquisitions.WithLabelValues(resultTimeout).Inc()
			p.metrics.acquireWait.Observe(elapsed.Seconds())
			p.cfg.logger.Warning().
				Dur("timeout", p.cfg.acquireTimeout).
				Log("timeout acquiring terminal")
			return "", nil, fmt.Errorf("%w: %w", ErrAcquireTimeout, &terminal.TimeoutError{
				Op:      "terminal",
				Timeout: p.cfg.acquireTimeout,
			})
		}

		timer := time.NewTimer(min(p.cfg.pollInterval, p.cfg.acquireTimeout-elapsed))
		select {
		case <-ctx.Done():
			timer.Stop()
			p.metrics.acquisitions.WithLabelValues(resultCancelled).Inc()
			return "", nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// AcquireDefault is Acquire using the default size.
func (p *Pool) AcquireDefault(ctx context.Context) (TerminalID, *terminal.Terminal, error) {
	return p.Acquire(ctx, p.cfg.width, p.cfg.height)
}

// tryAcquire makes a single attempt, returning a nil terminal if the pool
// is exhausted.
func (p *Pool) tryAcquire(width, height uint16) (TerminalID, *terminal.Terminal, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", nil, "", ErrClosed
	}

	var spare *entry
	for _, e := range p.entries {
		if e.inUse {
			continue
		}
		if e.width == width && e.height == height {
			p.markAcquired(e)
			return e.id, e.term, resultReused, nil
		}
		if spare == nil || e.lastAcquired.Before(spare.lastAcquired) {
			spare = e
		}
	}

	if len(p.entries) < p.cfg.capacity {
		termOpts := append([]terminal.Option{terminal.WithLogger(p.cfg.logger)}, p.cfg.termOpts...)
		term, err := terminal.New(width, height, termOpts...)
		if err != nil {
			return "", nil, "", fmt.Errorf("failed to create pooled terminal: %w", err)
		}
		e := &entry{
			id:     TerminalID(uuid.NewString()),
			term:   term,
			width:  width,
			height: height,
		}
		p.entries = append(p.entries, e)
		p.markAcquired(e)
		return e.id, e.term, resultCreated, nil
	}

	if spare != nil {
		if err := spare.term.Resize(width, height); err != nil {
			return "", nil, "", fmt.Errorf("failed to resize pooled terminal: %w", err)
		}
		spare.width, spare.height = width, height
		p.markAcquired(spare)
		return spare.id, spare.term, resultResized, nil
	}

	return "", nil, "", nil
}

// markAcquired must be called with mu held.
func (p *Pool) markAcquired(e *entry) {
	e.inUse = true
	e.lastAcquired = time.Now()
	p.updateGauges()
}

// updateGauges must be called with mu held.
func (p *Pool) updateGauges() {
	var inUse int
	for _, e := range p.entries {
		if e.inUse {
			inUse++
		}
	}
	p.metrics.setTerminals(inUse, len(p.entries)-inUse)
}

// Release returns a terminal to the pool. Any process still attached is
// killed, unread output is discarded, and the size it was acquired at is
// restored, before the terminal is made available again. Releasing a terminal that is not in use is a no-op.
func (p *Pool) Release(id TerminalID) error {
	p.mu.Lock()
	e := p.find(id)
	if e == nil {
		p.mu.Unlock()
		return &UnknownTerminalError{ID: id}
	}
	if !e.inUse || e.releasing {
		p.mu.Unlock()
		return nil
	}
	e.releasing = true
	p.mu.Unlock()

	err := reset(e.term, e.width, e.height)
	if err != nil {
		p.cfg.logger.Warning().
			Str("id", string(id)).
			Err(err).
			Log("failed to reset released terminal")
	}

	p.mu.Lock()
	e.releasing = false
	e.inUse = false
	p.updateGauges()
	p.mu.Unlock()

	p.metrics.releases.Inc()
	p.cfg.logger.Debug().
		Str("id", string(id)).
		Log("released terminal")
	return err
}

// reset readies a released terminal for reuse. The holder may have resized
// it, so the size the entry is matched on is restored.
func reset(term *terminal.Terminal, width, height uint16) error {
	if err := term.Kill(); err != nil && !errors.Is(err, terminal.ErrNoProcess) && !errors.Is(err, terminal.ErrClosed) {
		return err
	}
	if w, h := term.Size(); w != width || h != height {
		if err := term.Resize(width, height); err != nil && !errors.Is(err, terminal.ErrClosed) {
			return err
		}
	}
	if err := term.Drain(); err != nil && !errors.Is(err, terminal.ErrClosed) {
		return err
	}
	return nil
}

// find must be called with mu held.
func (p *Pool) find(id TerminalID) *entry {
	for _, e := range p.entries {
		if e.id == id {
			return e
		}
	}
	return nil
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{Total: len(p.entries), Capacity: p.cfg.capacity}
	for _, e := range p.entries {
		if e.inUse {
			s.InUse++
		}
	}
	s.Available = s.Total - s.InUse
	return s
}

// Clear closes and removes every terminal that is not in use.
func (p *Pool) Clear() error {
	p.mu.Lock()
	var (
		kept    []*entry
		removed []*entry
	)
	for _, e := range p.entries {
		if e.inUse {
			kept = append(kept, e)
		} else {
			removed = append(removed, e)
		}
	}
	p.entries = kept
	p.updateGauges()
	p.mu.Unlock()

	return closeEntries(removed)
}

// Close closes every terminal, including those in use, and causes further
// acquisitions to fail with ErrClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	entries := p.entries
	p.entries = nil
	p.updateGauges()
	p.mu.Unlock()

	return closeEntries(entries)
}

func closeEntries(entries []*entry) error {
	var errs []error
	for _, e := range entries {
		if err := e.term.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close terminal %s: %w", e.id, err))
		}
	}
	return errors.Join(errs...)
}
