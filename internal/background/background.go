// Package background implements the ephemeral delivery context that can
// display an alert with no foreground session open. Its in-memory timer map
// is strictly a latency-hiding cache over the durable store, never the
// source of truth: the host may tear the context down at any moment, and a
// recreated context starts empty and waits for the foreground scheduler's
// next resync to re-seed it with SCHEDULE messages.
package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MessageType discriminates the foreground/background protocol.
type MessageType string

const (
	// MsgSchedule seeds one record's timer.
	MsgSchedule MessageType = "SCHEDULE"
	// MsgCancel drops one record's timer.
	MsgCancel MessageType = "CANCEL"
	// MsgNavigate flows the other way: a notification click asking the
	// foreground to deep-link to a pick.
	MsgNavigate MessageType = "NAVIGATE"
)

// Record is the schedule payload: exactly the fields needed to display
// later without consulting the store.
type Record struct {
	ID            int64
	BetID         int64
	UserID        string
	Channel       string
	ScheduledTime time.Time
	Title         string
	Body          string
	DedupTag      string
}

// Message is one protocol frame.
type Message struct {
	Type     MessageType
	Record   Record // SCHEDULE
	RecordID int64  // CANCEL
	BetID    int64  // NAVIGATE
}

// Shower is the raw display primitive the context renders with. It has no
// store access on purpose: marking sent stays with the foreground
// scheduler and is reconciled on its next resync.
type Shower interface {
	Show(ctx context.Context, r Record) error
}

// Navigator receives NAVIGATE messages in an open foreground session.
type Navigator interface {
	Navigate(betID int64)
}

// Context is one background delivery context instance.
type Context struct {
	shower   Shower
	logger   *slog.Logger
	openSess func(betID int64) // used when no foreground session exists

	mu        sync.Mutex
	timers    map[int64]*time.Timer
	navigator Navigator
	alive     bool

	runCtx context.Context
	cancel context.CancelFunc
}

// New creates a context in the torn-down state; call Run to start it.
func New(shower Shower, openSession func(betID int64), logger *slog.Logger) *Context {
	return &Context{
		shower:   shower,
		logger:   logger,
		openSess: openSession,
		timers:   make(map[int64]*time.Timer),
	}
}

// Run starts the context. It always starts empty — whatever was armed in a
// previous incarnation is gone, by design.
func (c *Context) Run(ctx context.Context) {
	c.mu.Lock()
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.timers = make(map[int64]*time.Timer)
	c.alive = true
	c.mu.Unlock()

	c.logger.Info("Background delivery context started")

	<-c.runCtx.Done()
	c.Teardown()
}

// Teardown stops all timers and marks the context unreachable, simulating
// the host reclaiming it. Safe to call repeatedly; a later Run recreates
// the context from scratch.
func (c *Context) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return
	}
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.alive = false
	if c.cancel != nil {
		c.cancel()
	}
	c.logger.Info("Background delivery context torn down")
}

// Reachable reports whether the context can accept work right now.
func (c *Context) Reachable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

// AttachNavigator registers the foreground session that should receive
// NAVIGATE messages. Pass nil on session close.
func (c *Context) AttachNavigator(n Navigator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navigator = n
}

// Post is the single message entry point.
func (c *Context) Post(msg Message) {
	switch msg.Type {
	case MsgSchedule:
		c.schedule(msg.Record)
	case MsgCancel:
		c.cancelRecord(msg.RecordID)
	case MsgNavigate:
		c.navigate(msg.BetID)
	}
}

// schedule arms one timer. Re-scheduling an already-armed record is a
// no-op; the foreground resync re-seeds liberally.
func (c *Context) schedule(r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return
	}
	if _, armed := c.timers[r.ID]; armed {
		return
	}

	delay := time.Until(r.ScheduledTime)
	if delay < 0 {
		// Elapsed records are the foreground catch-up's job.
		return
	}
	c.timers[r.ID] = time.AfterFunc(delay, func() { c.fire(r) })
}

func (c *Context) cancelRecord(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Context) fire(r Record) {
	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return
	}
	delete(c.timers, r.ID)
	ctx := c.runCtx
	c.mu.Unlock()

	if err := c.shower.Show(ctx, r); err != nil {
		c.logger.Warn("background display failed", "tag", r.DedupTag, "error", err)
	}
}

// HandleClick routes a notification click: into the open foreground
// session when there is one, else through the open-session fallback.
func (c *Context) HandleClick(betID int64) {
	c.navigate(betID)
}

func (c *Context) navigate(betID int64) {
	c.mu.Lock()
	nav := c.navigator
	c.mu.Unlock()

	if nav != nil {
		nav.Navigate(betID)
		return
	}
	if c.openSess != nil {
		c.openSess(betID)
	}
}

// Armed returns the number of armed timers. Diagnostic only.
func (c *Context) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
