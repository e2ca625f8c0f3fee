package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/JeffersonAlvarez16/leoncito/internal/api/respond"
	"github.com/JeffersonAlvarez16/leoncito/internal/cache"
	"github.com/JeffersonAlvarez16/leoncito/internal/delivery"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
)

// ListPending returns unsent scheduled notifications, optionally for one user.
// @Summary List pending notifications
// @Description Returns all unsent scheduled notification records. Pass user to filter to a single recipient.
// @Tags notifications
// @Produce json
// @Param user query string false "User ID to filter by"
// @Success 200 {array} notifications.ScheduledNotification
// @Failure 500 {object} respond.ErrorResponse
// @Router /notifications/pending [get]
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")

	cacheKey := fmt.Sprintf("pending:%s", userID)
	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLPending, true)
		return
	}

	var (
		records []notifications.ScheduledNotification
		err     error
	)
	if userID != "" {
		records, err = h.store.ListPending(r.Context(), userID)
	} else {
		records, err = h.store.ListAllPending(r.Context())
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR",
			"Failed to list pending notifications")
		return
	}
	if records == nil {
		records = []notifications.ScheduledNotification{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR",
			"Failed to encode response")
		return
	}

	etag := h.cache.Set(cacheKey, data, cache.TTLPending)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, cache.TTLPending, false)
}

// Status reports engine state: permission, pending count, armed timers.
// With a user query param the permission field reflects that user's
// effective push permission — whether they hold an active push token.
// @Summary Alert engine status
// @Description Returns permission state, count of unsent records, and the number of armed foreground timers. Pass user to report that user's effective push permission instead of the engine's.
// @Tags notifications
// @Produce json
// @Param user query string false "User ID to check push permission for"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Router /notifications/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAllPending(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR",
			"Failed to count pending notifications")
		return
	}

	armed := 0
	if h.sched != nil {
		armed = h.sched.Armed()
	}
	online := true
	if h.monitor != nil {
		online = h.monitor.Online()
	}

	permission := string(h.gate.State())
	if userID := r.URL.Query().Get("user"); userID != "" {
		userGate := notifications.NewGate(delivery.PushCapability{
			Configured: h.pushActive,
			Tokens:     h.tokens,
			UserID:     userID,
		})
		permission = string(userGate.Request(r.Context()))
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"permission":   permission,
		"online":       online,
		"pending":      len(records),
		"armed_timers": armed,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
