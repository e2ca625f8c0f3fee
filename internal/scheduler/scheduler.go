// Package scheduler runs the foreground resync loop for one user session.
//
// Every resync loads the user's pending records, diffs them against the
// set of armed local timers by record id, and arms timers only for records
// it has not seen — existing timers are never re-armed, so there is no
// timer churn and no accumulated clock drift. One shared repeating ticker
// drives all records; there is no per-record polling.
//
// A forced resync (session start, visibility regained, connectivity
// restored, store change wakeup) additionally fires records whose
// scheduled time elapsed while the session was suspended but that remain
// unsent. That catch-up applies only to records that were successfully
// scheduled and missed their window — offsets the planner skipped at
// creation stay skipped.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JeffersonAlvarez16/leoncito/internal/delivery"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
)

// Seeder mirrors armed records into the background delivery context.
// Implemented by background.Context; nil when no such context exists.
type Seeder interface {
	Schedule(n notifications.ScheduledNotification)
	Cancel(id int64)
}

// Scheduler is an explicitly constructed, dependency-injected per-user
// scheduler instance with an Init/Dispose lifecycle. No process-wide
// singleton state.
type Scheduler struct {
	store    notifications.Store
	channel  *delivery.Channel
	seeder   Seeder
	userID   string
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	timers map[int64]*time.Timer

	cancel context.CancelFunc
	forced chan struct{}
	wg     sync.WaitGroup
}

// Option tweaks a Scheduler. Used by tests to shrink the resync interval
// and pin the clock.
type Option func(*Scheduler)

// WithInterval overrides the resync period.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a scheduler for one user. seeder may be nil.
func New(store notifications.Store, channel *delivery.Channel, seeder Seeder, userID string, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		channel:  channel,
		seeder:   seeder,
		userID:   userID,
		interval: notifications.ResyncInterval,
		logger:   logger,
		now:      time.Now,
		timers:   make(map[int64]*time.Timer),
		forced:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init runs the first resync (forced, so records missed during downtime
// fire immediately) and starts the shared resync ticker. Blocks only for
// the initial resync.
func (s *Scheduler) Init(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.resync(runCtx, true)

	s.wg.Add(1)
	go s.loop(runCtx)

	s.logger.Info("Foreground scheduler started", "user_id", s.userID, "interval", s.interval)
}

// Dispose stops the ticker and releases all armed timers. Pending records
// stay untouched in the store; the next session re-arms them.
func (s *Scheduler) Dispose() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	for id, t := range s.timers {
		if t != nil {
			t.Stop()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.logger.Info("Foreground scheduler disposed", "user_id", s.userID)
}

// ForceResync requests an out-of-band resync: visibility regained,
// connectivity restored, or a store change notification. Coalesces with an
// already-queued request.
func (s *Scheduler) ForceResync() {
	select {
	case s.forced <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.resync(ctx, false)
		case <-s.forced:
			s.resync(ctx, true)
		case <-ctx.Done():
			return
		}
	}
}

// resync is one pass of the diff-and-arm algorithm. A store failure is
// transient by assumption: log it and wait for the next tick, never crash
// the session.
func (s *Scheduler) resync(ctx context.Context, forced bool) {
	pending, err := s.store.ListPending(ctx, s.userID)
	if err != nil {
		s.logger.Warn("resync failed, retrying next tick", "user_id", s.userID, "error", err)
		return
	}

	now := s.now()
	armed, caught := 0, 0

	s.mu.Lock()
	for _, n := range pending {
		if _, seen := s.timers[n.ID]; seen {
			continue
		}

		delay := n.ScheduledTime.Sub(now)
		if delay <= 0 {
			// Missed while suspended. Only a forced resync catches up;
			// the regular tick leaves it for the visibility/reconnect
			// trigger that accompanies every suspension.
			if forced {
				s.timers[n.ID] = nil
				record := n
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					s.fire(ctx, record)
				}()
				caught++
			}
			continue
		}

		record := n
		s.timers[n.ID] = time.AfterFunc(delay, func() {
			s.fire(ctx, record)
		})
		armed++

		if s.seeder != nil {
			s.seeder.Schedule(n)
		}
	}
	s.mu.Unlock()

	if armed > 0 || caught > 0 {
		s.logger.Info("Resync complete",
			"user_id", s.userID, "pending", len(pending), "armed", armed, "caught_up", caught, "forced", forced)
	}
}

// fire delivers one record and marks it sent. A failed MarkSent (offline)
// leaves the row unsent so a later forced resync re-delivers; the dedup
// tag collapses the repeat into the already-visible notification. A
// MarkSent on a row deleted between fetch and fire is already-satisfied.
func (s *Scheduler) fire(ctx context.Context, n notifications.ScheduledNotification) {
	s.channel.Display(ctx, n)

	if err := s.store.MarkSent(ctx, n.ID); err != nil {
		s.logger.Warn("mark sent failed, will re-deliver on resync",
			"id", n.ID, "tag", n.DedupTag(), "error", err)
		s.release(n.ID)
		return
	}
	// Sent records drop out of ListPending, so the timer entry can go.
	s.release(n.ID)
}

func (s *Scheduler) release(id int64) {
	s.mu.Lock()
	delete(s.timers, id)
	s.mu.Unlock()
}

// HandleEventCancelled deletes the unsent records of a cancelled pick and
// cancels their background timers. Foreground timers armed in this session
// are deliberately left running: a fired-but-deleted record is a harmless
// no-op at MarkSent.
func (s *Scheduler) HandleEventCancelled(ctx context.Context, betID int64) {
	ids, err := s.store.DeleteByEvent(ctx, betID)
	if err != nil {
		s.logger.Warn("delete cancelled pick notifications failed", "bet_id", betID, "error", err)
		return
	}
	if s.seeder != nil {
		for _, id := range ids {
			s.seeder.Cancel(id)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("Cancelled pick notifications removed", "bet_id", betID, "count", len(ids))
	}
}

// Armed returns the number of records with a live or in-flight timer
// entry. Diagnostic only.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
