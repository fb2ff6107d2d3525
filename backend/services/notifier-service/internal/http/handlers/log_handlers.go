package handlers

import (
	"context"
	"net/http"
	"strconv"

	"avacharge/backend/services/notifier-service/internal/models"
)

const maxLogLimit = 200

// NotificationLog reads back delivered messages.
type NotificationLog interface {
	Recent(ctx context.Context, stationID string, limit int) ([]models.Message, error)
}

// NewNotificationsHandler returns GET /notifications handler.
func NewNotificationsHandler(log NotificationLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = min(v, maxLogLimit)
		}

		messages, err := log.Recent(r.Context(), r.URL.Query().Get("station_id"), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch notifications")
			return
		}
		if messages == nil {
			messages = []models.Message{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"notifications": messages,
		})
	}
}
