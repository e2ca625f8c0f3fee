package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JeffersonAlvarez16/leoncito/internal/api/respond"
	"github.com/JeffersonAlvarez16/leoncito/internal/notifications"
)

// GetPreferences returns one user's notification preferences. A first
// read creates the row with every channel enabled.
// @Summary Get notification preferences
// @Description Returns the user's master switch and per-channel opt-ins. Creates defaults on first read.
// @Tags preferences
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} notifications.Preferences
// @Failure 500 {object} respond.ErrorResponse
// @Router /preferences/{userID} [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "userID is required")
		return
	}

	prefs, err := h.prefs.Get(r.Context(), userID)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR",
			"Failed to load preferences")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, prefs)
}

// PutPreferences replaces one user's notification preferences. The new
// flags gate future scheduling passes only; records already persisted
// keep their timers.
// @Summary Update notification preferences
// @Description Replaces the user's preference flags. Existing scheduled records are not affected.
// @Tags preferences
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param preferences body notifications.Preferences true "New preference flags"
// @Success 200 {object} notifications.Preferences
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /preferences/{userID} [put]
func (h *Handler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID", "userID is required")
		return
	}

	var prefs notifications.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_BODY",
			"Body must be a JSON preferences object")
		return
	}
	prefs.UserID = userID

	if err := h.prefs.Put(r.Context(), prefs); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "DB_ERROR",
			"Failed to save preferences")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, prefs)
}
