package service

import (
	"time"

	"avacharge/backend/services/notifier-service/internal/models"
)

// Window is an open interval of time remaining before a session ends.
type Window struct {
	Lower time.Duration
	Upper time.Duration
}

// DefaultWindow fires between four and six minutes before the end.
var DefaultWindow = Window{Lower: 4 * time.Minute, Upper: 6 * time.Minute}

// Contains reports Lower < remaining < Upper.
func (w Window) Contains(remaining time.Duration) bool {
	return remaining > w.Lower && remaining < w.Upper
}

// endingSoon applies the time-remaining rule. It carries no dedup state: every poll
// that lands inside the window fires again.
func endingSoon(rec models.StationRecord, now time.Time, window Window) (models.Message, bool) {
	if status, _ := models.ParseStatus(rec.Status); status != models.StatusOccupied {
		return models.Message{}, false
	}
	end, ok := rec.SessionEnd()
	if !ok {
		return models.Message{}, false
	}
	if !window.Contains(end.Sub(now)) {
		return models.Message{}, false
	}
	return endingSoonMessageFor(rec, now, window), true
}
