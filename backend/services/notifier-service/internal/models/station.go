package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Status is a normalized station status.
type Status string

// Known station statuses. StatusUnknown is the fallback arm for values outside the set.
const (
	StatusFree        Status = "Free"
	StatusOccupied    Status = "Occupied"
	StatusWaiting     Status = "Waiting"
	StatusLeftWaiting Status = "LeftWaiting"
	StatusBooked      Status = "Booked"
	StatusUnknown     Status = ""
)

var knownStatuses = map[string]Status{
	"free":        StatusFree,
	"occupied":    StatusOccupied,
	"waiting":     StatusWaiting,
	"leftwaiting": StatusLeftWaiting,
	"booked":      StatusBooked,
}

// ParseStatus matches raw case-insensitively against the known set.
func ParseStatus(raw string) (Status, bool) {
	s, ok := knownStatuses[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return StatusUnknown, false
	}
	return s, true
}

// CanonicalStatus returns the canonical spelling for known statuses and the trimmed raw
// value otherwise, so unknown statuses still compare and persist consistently.
func CanonicalStatus(raw string) string {
	if s, ok := ParseStatus(raw); ok {
		return string(s)
	}
	return strings.TrimSpace(raw)
}

// Store errors.
var (
	ErrStationNotFound = errors.New("station not found")
	ErrStaleRecord     = errors.New("station record changed concurrently")
)

// StationRecord is one charging station document.
type StationRecord struct {
	ID             string            `json:"-" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Status         string            `json:"status" yaml:"status"`
	User           string            `json:"user,omitempty" yaml:"user"`
	Duration       *int              `json:"duration,omitempty" yaml:"duration"`
	Timestamp      *int64            `json:"timestamp,omitempty" yaml:"timestamp"`
	Booking        json.RawMessage   `json:"booking,omitempty" yaml:"-"`
	BookingTime    string            `json:"bookingTime,omitempty" yaml:"bookingTime"`
	NotifiedStatus string            `json:"notifiedStatus,omitempty" yaml:"notifiedStatus"`
	WaitingList    []json.RawMessage `json:"waitingList,omitempty" yaml:"-"`
}

var falsyBookings = [][]byte{
	[]byte("null"), []byte("false"), []byte(`""`), []byte("0"),
}

// HasBooking reports whether the booking marker is set to a non-empty value.
func (r StationRecord) HasBooking() bool {
	b := bytes.TrimSpace(r.Booking)
	if len(b) == 0 {
		return false
	}
	for _, falsy := range falsyBookings {
		if bytes.Equal(b, falsy) {
			return false
		}
	}
	return true
}

// StatusChanged reports whether status differs from the last notified status.
func (r StationRecord) StatusChanged() bool {
	return CanonicalStatus(r.Status) != CanonicalStatus(r.NotifiedStatus)
}

// SessionEnd returns start+duration for an occupied session. ok is false when
// timestamp is missing or duration is not positive.
func (r StationRecord) SessionEnd() (end time.Time, ok bool) {
	if r.Timestamp == nil || r.Duration == nil || *r.Duration <= 0 {
		return time.Time{}, false
	}
	start := time.UnixMilli(*r.Timestamp)
	return start.Add(time.Duration(*r.Duration) * time.Minute), true
}

// DisplayUser returns the user or the "Unknown" placeholder.
func (r StationRecord) DisplayUser() string {
	return UserOrUnknown(r.User)
}

// UserOrUnknown substitutes the placeholder for an empty user.
func UserOrUnknown(user string) string {
	if strings.TrimSpace(user) == "" {
		return "Unknown"
	}
	return user
}
