package service

import (
	"strings"
	"testing"
	"time"

	"avacharge/backend/services/notifier-service/internal/models"
)

func TestStatusMessageTemplates(t *testing.T) {
	cases := []struct {
		status string
		title  string
		text   string
	}{
		{"Occupied", "🔌 Station Occupied", "Station: **Bay 1**\nUser: **Ana**\nEstimated duration: **45 mins**"},
		{"waiting", "📋 Joined Waiting List", "User: **Ana** joined the waiting list for **Bay 1**"},
		{"FREE", "✅ Station Now Free", "Station **Bay 1** is now free"},
		{"LeftWaiting", "🚶 Left Waiting List", "User: **Ana** left the waiting list for **Bay 1**"},
		{"Booked", "📅 Station Booked", "User: **Ana** booked **Bay 1**\nBooking time: **09:15**"},
		{"Offline", "ℹ️ Status Update", "User: **Ana**\nStation: **Bay 1**\nStatus: **Offline**"},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			title, text := statusMessage(messageInput{
				StationName: "Bay 1",
				User:        "Ana",
				RawStatus:   tc.status,
				Duration:    intPtr(45),
				BookingTime: "09:15",
			})
			if title != tc.title {
				t.Errorf("title: got %q, want %q", title, tc.title)
			}
			if text != tc.text {
				t.Errorf("text: got %q, want %q", text, tc.text)
			}
		})
	}
}

func TestStatusMessagePlaceholders(t *testing.T) {
	_, text := statusMessage(messageInput{StationName: "Bay 1", RawStatus: "Occupied"})
	if !strings.Contains(text, "User: **Unknown**") || !strings.Contains(text, "**? mins**") {
		t.Errorf("placeholders missing: %q", text)
	}

	_, text = statusMessage(messageInput{StationName: "Bay 1", User: "Ana", RawStatus: "Booked"})
	if strings.Contains(text, "Booking time") {
		t.Errorf("empty booking time rendered: %q", text)
	}
}

func TestDailyResetMessage(t *testing.T) {
	msg := dailyResetMessage(ResetResult{Reset: 3, Skipped: []string{"Bay 4"}, Failed: 1}, time.Now())
	if msg.Title != titleDailyReset || msg.Kind != models.KindDailyReset {
		t.Errorf("unexpected header: %+v", msg)
	}
	for _, want := range []string{"Reset: **3**", "Skipped (booked): **1** (Bay 4)", "Failed: **1**"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text %q missing %q", msg.Text, want)
		}
	}
}

func TestStationNameFallsBackToID(t *testing.T) {
	if got := stationName(models.StationRecord{ID: "st-9"}); got != "st-9" {
		t.Errorf("got %q", got)
	}
}

func TestApproxRemaining(t *testing.T) {
	cases := map[Window]string{
		DefaultWindow: "~5 minutes",
		{Lower: 270 * time.Second, Upper: 330 * time.Second}: "~5 minutes",
		{Lower: 30 * time.Second, Upper: 90 * time.Second}:   "~1 minute",
		{Lower: 0, Upper: 30 * time.Second}:                  "~1 minute",
	}
	for w, want := range cases {
		if got := approxRemaining(w); got != want {
			t.Errorf("approxRemaining(%v) = %q, want %q", w, got, want)
		}
	}
}
