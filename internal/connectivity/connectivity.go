// Package connectivity provides the connectivity oracle and the
// edge-triggered online/offline event source consumed by the sync engine.
// Both are interfaces so tests can drive transitions deterministically.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// State is an edge-triggered connectivity transition.
type State int

const (
	Offline State = iota
	Online
)

func (s State) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

// Oracle answers the point-in-time connectivity question.
type Oracle interface {
	Online() bool
}

// Source delivers connectivity transitions as they happen.
type Source interface {
	Oracle
	Events() <-chan State
}

// Pinger is the probe target, satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Probe polls the remote store and emits an event on every transition. It
// is the production Source; the engine only sees the interface.
type Probe struct {
	target   Pinger
	interval time.Duration
	logger   *zap.Logger

	online atomic.Bool
	events chan State

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewProbe constructs a probe around the remote store connection. Call
// Start to begin polling and Close to stop.
func NewProbe(target Pinger, interval time.Duration, logger *zap.Logger) *Probe {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{
		target:   target,
		interval: interval,
		logger:   logger,
		events:   make(chan State, 8),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start performs an initial check and begins polling in the background.
func (p *Probe) Start(ctx context.Context) {
	p.check(ctx)
	go p.loop(ctx)
}

// Online implements Oracle.
func (p *Probe) Online() bool {
	return p.online.Load()
}

// Events implements Source.
func (p *Probe) Events() <-chan State {
	return p.events
}

// Close stops the polling loop and waits for it to exit.
func (p *Probe) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.done
	})
}

func (p *Probe) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Probe) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	reachable := p.target.PingContext(pingCtx) == nil
	if p.online.Swap(reachable) == reachable {
		return
	}

	state := Offline
	if reachable {
		state = Online
	}
	p.logger.Info("connectivity changed", zap.String("state", state.String()))

	// Drop the event rather than block if nobody is draining yet.
	select {
	case p.events <- state:
	default:
	}
}
