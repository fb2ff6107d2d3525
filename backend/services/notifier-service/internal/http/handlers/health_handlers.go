package handlers

import (
	"context"
	"net/http"
	"time"
)

// PingFunc checks a dependency.
type PingFunc func(ctx context.Context) error

// NewHealthHandler returns GET /health handler.
func NewHealthHandler(redisPing PingFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisPing(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"redis":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "redis": "ok"})
	}
}
