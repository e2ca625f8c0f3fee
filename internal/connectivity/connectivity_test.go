package connectivity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// switchableProbe flips between failing and succeeding.
type switchableProbe struct {
	failing atomic.Bool
}

func (p *switchableProbe) probe(ctx context.Context) error {
	if p.failing.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestMonitorStartsOnline(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, testLogger())
	assert.True(t, m.Online())
}

func TestMonitorFlagsOfflineOnProbeFailure(t *testing.T) {
	p := &switchableProbe{}
	p.failing.Store(true)

	m := New(p.probe, testLogger(), WithInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.Eventually(t, func() bool { return !m.Online() }, time.Second, 5*time.Millisecond)
}

func TestMonitorFiresHooksOnReconnectOnly(t *testing.T) {
	p := &switchableProbe{}
	p.failing.Store(true)

	var (
		mu         sync.Mutex
		reconnects int
	)
	m := New(p.probe, testLogger(), WithInterval(10*time.Millisecond))
	m.OnReconnect(func() {
		mu.Lock()
		defer mu.Unlock()
		reconnects++
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	require.Eventually(t, func() bool { return !m.Online() }, time.Second, 5*time.Millisecond)

	// Staying online after the transition must not re-fire hooks.
	p.failing.Store(false)
	require.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, reconnects)
}

func TestMonitorStaysQuietWhileOnline(t *testing.T) {
	p := &switchableProbe{}

	fired := atomic.Int32{}
	m := New(p.probe, testLogger(), WithInterval(10*time.Millisecond))
	m.OnReconnect(func() { fired.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.True(t, m.Online())
}
