package handler

import (
	"net/http"

	"github.com/JeffersonAlvarez16/leoncito/internal/api/respond"
)

// RunSchedule triggers one scheduling pass immediately. The pass is
// idempotent, so calling it while the resync tick runs is harmless.
// @Summary Run a scheduling pass
// @Description Fans out upcoming published picks to all opted-in recipients and persists new records. Duplicate-safe.
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Router /schedule/run [post]
func (h *Handler) RunSchedule(w http.ResponseWriter, r *http.Request) {
	result, err := h.builder.Run(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "SCHEDULE_ERROR",
			"Scheduling pass failed")
		return
	}

	// New records change the pending view straight away.
	h.cache.InvalidatePrefix("pending:")
	if h.sched != nil && result.Created > 0 {
		h.sched.ForceResync()
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"picks":       result.Picks,
		"users":       result.Users,
		"created":     result.Created,
		"duration_ms": result.Duration.Milliseconds(),
	})
}
