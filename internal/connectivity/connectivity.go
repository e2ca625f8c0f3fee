// Package connectivity watches online/offline transitions against a probe
// (in practice, a database ping). Regaining connectivity forces a
// scheduler resync; losing it only flips the status flag consumed by the
// status endpoint — armed timers keep firing locally, since display is
// local and only MarkSent needs the network.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultProbeInterval = 15 * time.Second

// Probe checks reachability. A nil error means online.
type Probe func(ctx context.Context) error

// Monitor polls the probe and invokes reconnect hooks on the
// offline→online transition.
type Monitor struct {
	probe    Probe
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	online bool
	hooks  []func()
}

// Option tweaks a Monitor.
type Option func(*Monitor)

// WithInterval overrides the probe period.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// New creates a monitor that starts in the online state.
func New(probe Probe, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		probe:    probe,
		interval: defaultProbeInterval,
		logger:   logger,
		online:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnReconnect registers a hook for the offline→online transition.
func (m *Monitor) OnReconnect(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// Online reports the current status flag.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Run polls until ctx is cancelled. Intended to be called with `go`.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	err := m.probe(ctx)

	m.mu.Lock()
	wasOnline := m.online
	m.online = err == nil
	var hooks []func()
	if !wasOnline && m.online {
		hooks = append(hooks, m.hooks...)
	}
	m.mu.Unlock()

	switch {
	case wasOnline && err != nil:
		m.logger.Warn("Connectivity lost", "error", err)
	case !wasOnline && err == nil:
		m.logger.Info("Connectivity restored, forcing resync")
	}

	for _, fn := range hooks {
		fn()
	}
}
