package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(betID int64, userID string, c Channel, at time.Time) ScheduledNotification {
	title, body := "title", "body"
	return ScheduledNotification{
		BetID:         betID,
		UserID:        userID,
		Channel:       c,
		ScheduledTime: at,
		Title:         title,
		Body:          body,
	}
}

func TestCreateManyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	at := time.Now().Add(time.Hour)

	batch := []ScheduledNotification{
		record(1, "u1", Channel30Min, at),
		record(1, "u1", Channel5Min, at.Add(25*time.Minute)),
		record(1, "u1", ChannelLive, at.Add(30*time.Minute)),
	}

	inserted, err := store.CreateMany(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// A second identical pass creates nothing.
	inserted, err = store.CreateMany(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	pending, err := store.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestCreateManyUniquenessIsOverUnsentOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	at := time.Now().Add(time.Hour)

	inserted, err := store.CreateMany(ctx, []ScheduledNotification{record(1, "u1", ChannelLive, at)})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	pending, _ := store.ListPending(ctx, "u1")
	require.NoError(t, store.MarkSent(ctx, pending[0].ID))

	// The sent row no longer blocks a fresh record for the same triple.
	inserted, err = store.CreateMany(ctx, []ScheduledNotification{record(1, "u1", ChannelLive, at)})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestMarkSentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	_, err := store.CreateMany(ctx, []ScheduledNotification{record(1, "u1", ChannelLive, time.Now())})
	require.NoError(t, err)
	pending, _ := store.ListPending(ctx, "u1")
	require.Len(t, pending, 1)
	id := pending[0].ID

	require.NoError(t, store.MarkSent(ctx, id))
	n, ok := store.Get(id)
	require.True(t, ok)
	assert.True(t, n.Sent)

	// Second call is a no-op, not an error.
	require.NoError(t, store.MarkSent(ctx, id))

	// Marking a row deleted in the meantime is already-satisfied work.
	require.NoError(t, store.MarkSent(ctx, 9999))
}

func TestDeleteByEventRemovesUnsentOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	at := time.Now().Add(time.Hour)

	_, err := store.CreateMany(ctx, []ScheduledNotification{
		record(7, "u1", Channel30Min, at),
		record(7, "u1", ChannelLive, at.Add(30*time.Minute)),
		record(8, "u1", ChannelLive, at),
	})
	require.NoError(t, err)

	// One of pick 7's alerts already fired.
	pending, _ := store.ListPending(ctx, "u1")
	for _, n := range pending {
		if n.BetID == 7 && n.Channel == Channel30Min {
			require.NoError(t, store.MarkSent(ctx, n.ID))
		}
	}

	ids, err := store.DeleteByEvent(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, ids, 1, "only the unsent record is removed")

	// The other pick is untouched; the sent row survives as history.
	pending, _ = store.ListPending(ctx, "u1")
	require.Len(t, pending, 1)
	assert.Equal(t, int64(8), pending[0].BetID)
}

func TestListPendingIncludesElapsedRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	// A record whose fire time passed while no session was running must
	// stay visible so the forced resync can catch it up.
	_, err := store.CreateMany(ctx, []ScheduledNotification{
		record(1, "u1", ChannelLive, time.Now().Add(-10*time.Minute)),
		record(2, "u1", ChannelLive, time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	pending, err := store.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	// Sorted by scheduled time, elapsed first.
	assert.Equal(t, int64(1), pending[0].BetID)
}

func TestListPendingFiltersByUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	at := time.Now().Add(time.Hour)

	_, err := store.CreateMany(ctx, []ScheduledNotification{
		record(1, "u1", ChannelLive, at),
		record(1, "u2", ChannelLive, at),
	})
	require.NoError(t, err)

	pending, err := store.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "u1", pending[0].UserID)

	all, err := store.ListAllPending(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPreferenceChangeDoesNotTouchExistingRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	prefs := NewMemPreferences()

	_, err := store.CreateMany(ctx, []ScheduledNotification{
		record(1, "u1", ChannelLive, time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	// Turning everything off gates future planning only.
	p := DefaultPreferences("u1")
	p.Master = false
	require.NoError(t, prefs.Put(ctx, p))

	pending, err := store.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestMemPreferencesDefaultsOnFirstRead(t *testing.T) {
	ctx := context.Background()
	prefs := NewMemPreferences()

	p, err := prefs.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, p.Master)
	assert.True(t, p.Before30Min)
	assert.True(t, p.Before5Min)
	assert.True(t, p.Live)

	p.Before5Min = false
	require.NoError(t, prefs.Put(ctx, p))

	p, err = prefs.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, p.Before5Min)
}
