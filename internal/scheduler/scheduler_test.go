package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffersonAlvarez16/leoncito/internal/delivery"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
)

// recordingDisplayer counts displays per dedup tag.
type recordingDisplayer struct {
	mu    sync.Mutex
	shown map[string]int
}

func newRecordingDisplayer() *recordingDisplayer {
	return &recordingDisplayer{shown: make(map[string]int)}
}

func (d *recordingDisplayer) Display(ctx context.Context, n notifications.ScheduledNotification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown[n.DedupTag()]++
	return nil
}

func (d *recordingDisplayer) count(tag string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown[tag]
}

func (d *recordingDisplayer) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.shown {
		n += c
	}
	return n
}

// recordingSeeder captures schedule/cancel traffic toward the background
// context.
type recordingSeeder struct {
	mu        sync.Mutex
	scheduled []int64
	cancelled []int64
}

func (s *recordingSeeder) Schedule(n notifications.ScheduledNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, n.ID)
}

func (s *recordingSeeder) Cancel(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seed(t *testing.T, store notifications.Store, betID int64, c notifications.Channel, at time.Time) notifications.ScheduledNotification {
	t.Helper()
	n := notifications.ScheduledNotification{
		BetID:         betID,
		UserID:        "u1",
		Channel:       c,
		ScheduledTime: at,
		Title:         "t",
		Body:          "b",
	}
	inserted, err := store.CreateMany(context.Background(), []notifications.ScheduledNotification{n})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)
	pending, err := store.ListPending(context.Background(), "u1")
	require.NoError(t, err)
	for _, p := range pending {
		if p.BetID == betID && p.Channel == c {
			return p
		}
	}
	t.Fatalf("seeded record not found")
	return notifications.ScheduledNotification{}
}

func newTestScheduler(store notifications.Store, displayer *recordingDisplayer, seeder Seeder) *Scheduler {
	channel := delivery.NewChannel(nil, displayer, testLogger())
	return New(store, channel, seeder, "u1", testLogger(), WithInterval(25*time.Millisecond))
}

func TestSchedulerFiresFutureRecordAndMarksSent(t *testing.T) {
	ctx := context.Background()
	store := notifications.NewMemStore()
	displayer := newRecordingDisplayer()
	n := seed(t, store, 1, notifications.ChannelLive, time.Now().Add(60*time.Millisecond))

	s := newTestScheduler(store, displayer, nil)
	s.Init(ctx)
	defer s.Dispose()

	require.Eventually(t, func() bool {
		return displayer.count(n.DedupTag()) == 1
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		got, ok := store.Get(n.ID)
		return ok && got.Sent
	}, time.Second, 10*time.Millisecond)
}

func TestSchedulerNeverReArms(t *testing.T) {
	ctx := context.Background()
	store := notifications.NewMemStore()
	displayer := newRecordingDisplayer()
	seeder := &recordingSeeder{}
	n := seed(t, store, 1, notifications.ChannelLive, time.Now().Add(time.Hour))

	s := newTestScheduler(store, displayer, seeder)
	s.Init(ctx)
	defer s.Dispose()

	// Several resync cycles pass; the timer set stays at one entry and
	// the background context is seeded exactly once.
	time.Sleep(120 * time.Millisecond)
	s.ForceResync()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, 1, s.Armed())
	seeder.mu.Lock()
	defer seeder.mu.Unlock()
	assert.Equal(t, []int64{n.ID}, seeder.scheduled)
}

func TestSchedulerCatchesUpElapsedOnForcedResyncOnly(t *testing.T) {
	ctx := context.Background()
	store := notifications.NewMemStore()
	displayer := newRecordingDisplayer()

	s := newTestScheduler(store, displayer, nil)
	s.Init(ctx)
	defer s.Dispose()

	// Insert a record that already elapsed, as if the session had been
	// suspended past its fire time.
	n := seed(t, store, 2, notifications.Channel5Min, time.Now().Add(-5*time.Minute))

	// Regular ticks alone leave it for the forced trigger.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, displayer.count(n.DedupTag()))

	s.ForceResync()
	require.Eventually(t, func() bool {
		return displayer.count(n.DedupTag()) == 1
	}, time.Second, 10*time.Millisecond)

	// The catch-up fires exactly once even across further forced resyncs.
	s.ForceResync()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, displayer.count(n.DedupTag()))
}

func TestSchedulerInitCatchesUpMissedRecords(t *testing.T) {
	ctx := context.Background()
	store := notifications.NewMemStore()
	displayer := newRecordingDisplayer()
	n := seed(t, store, 3, notifications.Channel30Min, time.Now().Add(-time.Minute))

	// Session start is a forced resync: missed records fire immediately.
	s := newTestScheduler(store, displayer, nil)
	s.Init(ctx)
	defer s.Dispose()

	require.Eventually(t, func() bool {
		return displayer.count(n.DedupTag()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSchedulerPicksUpRecordsInsertedBetweenTicks(t *testing.T) {
	ctx := context.Background()
	store := notifications.NewMemStore()
	displayer := newRecordingDisplayer()

	s := newTestScheduler(store, displayer, nil)
	s.Init(ctx)
	defer s.Dispose()

	// Inserted after Init: the repeating tick arms it without any
	// explicit wakeup.
	seed(t, store, 4, notifications.ChannelLive, time.Now().Add(time.Hour))

	require.Eventually(t, func() bool {
		return s.Armed() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSchedulerEventCancelledDropsPendingRecords(t *testing.T) {
	ctx := context.Background()
	store := notifications.NewMemStore()
	displayer := newRecordingDisplayer()
	seeder := &recordingSeeder{}

	n1 := seed(t, store, 5, notifications.Channel30Min, time.Now().Add(time.Hour))
	n2 := seed(t, store, 5, notifications.ChannelLive, time.Now().Add(90*time.Minute))
	keep := seed(t, store, 6, notifications.ChannelLive, time.Now().Add(time.Hour))

	s := newTestScheduler(store, displayer, seeder)
	s.Init(ctx)
	defer s.Dispose()

	s.HandleEventCancelled(ctx, 5)

	pending, err := store.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, keep.ID, pending[0].ID)

	// The background context is told to drop the same records.
	seeder.mu.Lock()
	defer seeder.mu.Unlock()
	assert.ElementsMatch(t, []int64{n1.ID, n2.ID}, seeder.cancelled)
}

func TestSchedulerDisposeStopsFiring(t *testing.T) {
	ctx := context.Background()
	store := notifications.NewMemStore()
	displayer := newRecordingDisplayer()
	seed(t, store, 7, notifications.ChannelLive, time.Now().Add(60*time.Millisecond))

	s := newTestScheduler(store, displayer, nil)
	s.Init(ctx)
	s.Dispose()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, displayer.total())
	assert.Equal(t, 0, s.Armed())

	// The record is still pending; the next session will arm it again.
	pending, err := store.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
