package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"avacharge/backend/services/notifier-service/internal/http/middleware"
	"avacharge/backend/services/notifier-service/internal/models"
	"avacharge/backend/services/notifier-service/internal/service"
)

const resetKeyHeader = "x-reset-key"

// Notifier is the service surface used by the HTTP handlers.
type Notifier interface {
	Poll(ctx context.Context) (service.PollResult, error)
	Push(ctx context.Context, req service.PushRequest) (models.Message, error)
	ResetDaily(ctx context.Context) (service.ResetResult, error)
}

// ResetChecker validates the daily reset key.
type ResetChecker interface {
	Check(key string) error
}

// NotifierHandler serves the poll, push and reset endpoints.
type NotifierHandler struct {
	svc    Notifier
	guard  ResetChecker
	logger *zap.Logger
}

// NewNotifierHandler builds handler set.
func NewNotifierHandler(svc Notifier, guard ResetChecker, logger *zap.Logger) *NotifierHandler {
	return &NotifierHandler{svc: svc, guard: guard, logger: logger}
}

// HandlePoll handles GET /. It always answers 200 so unattended schedulers do not retry.
func (h *NotifierHandler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	result, err := h.svc.Poll(r.Context())
	if err != nil {
		h.logger.Error("poll failed", zap.Error(err))
		writeText(w, http.StatusOK, "⚠️ Poll failed: "+err.Error())
		return
	}
	writeText(w, http.StatusOK, result.Summary())
}

// HandlePush handles POST /notify.
func (h *NotifierHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	var req service.PushRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	msg, err := h.svc.Push(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("push failed", zap.String("station_id", req.StationID), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}
	caller, _ := middleware.SubjectFromContext(r.Context())
	h.logger.Info("status pushed",
		zap.String("station_id", req.StationID),
		zap.String("status", req.Status),
		zap.String("caller", caller))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "sent",
		"title":   msg.Title,
		"station": req.StationID,
	})
}

// HandleResetDaily handles POST /reset-daily.
func (h *NotifierHandler) HandleResetDaily(w http.ResponseWriter, r *http.Request) {
	if err := h.guard.Check(r.Header.Get(resetKeyHeader)); err != nil {
		h.logger.Warn("daily reset rejected", zap.String("remote", r.RemoteAddr))
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	result, err := h.svc.ResetDaily(r.Context())
	if err != nil {
		h.logger.Error("daily reset failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   err.Error(),
			"reset":   result.Reset,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
