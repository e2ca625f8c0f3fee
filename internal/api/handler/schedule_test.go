package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffersonAlvarez16/leoncito/internal/cache"
	"github.com/JeffersonAlvarez16/leoncito/internal/config"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
	"github.com/JeffersonAlvarez16/leoncito/internal/picks"
)

type emptySource struct{}

func (emptySource) ListUpcoming(_ context.Context) ([]picks.Pick, error) { return nil, nil }

type noRecipients struct{}

func (noRecipients) ListRecipients(_ context.Context) ([]string, error) { return nil, nil }

func TestRunScheduleInvalidatesPerUserPendingViews(t *testing.T) {
	gate := notifications.NewGate(notifications.StaticCapability{
		IsSupported: true,
		Result:      notifications.PermissionGranted,
	})
	gate.Request(context.Background())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := notifications.NewBuilder(emptySource{}, noRecipients{},
		notifications.NewMemPreferences(), notifications.NewMemStore(), gate, logger)

	appCache := cache.New(true)
	appCache.Set("pending:", []byte("all"), time.Minute)
	appCache.Set("pending:u1", []byte("u1"), time.Minute)

	h := New(nil, appCache, &config.Config{}, notifications.NewMemStore(),
		notifications.NewMemPreferences(), builder, nil, gate, nil,
		fakeTokens{}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/run", nil)
	rr := httptest.NewRecorder()
	h.RunSchedule(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// Both the all-users view and the per-user views are gone.
	_, _, ok := appCache.Get("pending:")
	assert.False(t, ok)
	_, _, ok = appCache.Get("pending:u1")
	assert.False(t, ok)
}
