package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"avacharge/backend/services/notifier-service/internal/models"
)

const (
	titleEndingSoon = "⏰ Charging Time Ending Soon"
	titleGeneric    = "ℹ️ Status Update"
	titleDailyReset = "🔄 Daily Reset"
)

type messageInput struct {
	StationName string
	User        string
	RawStatus   string
	Duration    *int
	BookingTime string
}

type statusTemplate struct {
	title string
	body  func(in messageInput) string
}

// statusTemplates covers every known status; anything else falls through to the
// generic template in statusMessage.
var statusTemplates = map[models.Status]statusTemplate{
	models.StatusOccupied: {
		title: "🔌 Station Occupied",
		body: func(in messageInput) string {
			return fmt.Sprintf("Station: **%s**\nUser: **%s**\nEstimated duration: **%s mins**",
				in.StationName, models.UserOrUnknown(in.User), formatDuration(in.Duration))
		},
	},
	models.StatusWaiting: {
		title: "📋 Joined Waiting List",
		body: func(in messageInput) string {
			return fmt.Sprintf("User: **%s** joined the waiting list for **%s**",
				models.UserOrUnknown(in.User), in.StationName)
		},
	},
	models.StatusFree: {
		title: "✅ Station Now Free",
		body: func(in messageInput) string {
			return fmt.Sprintf("Station **%s** is now free", in.StationName)
		},
	},
	models.StatusLeftWaiting: {
		title: "🚶 Left Waiting List",
		body: func(in messageInput) string {
			return fmt.Sprintf("User: **%s** left the waiting list for **%s**",
				models.UserOrUnknown(in.User), in.StationName)
		},
	},
	models.StatusBooked: {
		title: "📅 Station Booked",
		body: func(in messageInput) string {
			text := fmt.Sprintf("User: **%s** booked **%s**", models.UserOrUnknown(in.User), in.StationName)
			if bt := strings.TrimSpace(in.BookingTime); bt != "" {
				text += fmt.Sprintf("\nBooking time: **%s**", bt)
			}
			return text
		},
	},
}

func statusMessage(in messageInput) (title, text string) {
	status, _ := models.ParseStatus(in.RawStatus)
	if tmpl, ok := statusTemplates[status]; ok {
		return tmpl.title, tmpl.body(in)
	}
	return titleGeneric, fmt.Sprintf("User: **%s**\nStation: **%s**\nStatus: **%s**",
		models.UserOrUnknown(in.User), in.StationName, strings.TrimSpace(in.RawStatus))
}

func statusChangeMessage(rec models.StationRecord, now time.Time) models.Message {
	title, text := statusMessage(messageInput{
		StationName: stationName(rec),
		User:        rec.User,
		RawStatus:   rec.Status,
		Duration:    rec.Duration,
		BookingTime: rec.BookingTime,
	})
	return models.Message{
		StationID: rec.ID,
		Kind:      models.KindStatusChange,
		Title:     title,
		Text:      text,
		CreatedAt: now,
	}
}

func endingSoonMessageFor(rec models.StationRecord, now time.Time, window Window) models.Message {
	return models.Message{
		StationID: rec.ID,
		Kind:      models.KindEndingSoon,
		Title:     titleEndingSoon,
		Text: fmt.Sprintf("Station **%s** will be available in %s.\nUser: **%s**",
			stationName(rec), approxRemaining(window), rec.DisplayUser()),
		CreatedAt: now,
	}
}

func dailyResetMessage(result ResetResult, now time.Time) models.Message {
	text := fmt.Sprintf("All stations have been reset for the day.\nReset: **%d**\nSkipped (booked): **%d**",
		result.Reset, len(result.Skipped))
	if len(result.Skipped) > 0 {
		text += fmt.Sprintf(" (%s)", strings.Join(result.Skipped, ", "))
	}
	if result.Failed > 0 {
		text += fmt.Sprintf("\nFailed: **%d**", result.Failed)
	}
	return models.Message{
		Kind:      models.KindDailyReset,
		Title:     titleDailyReset,
		Text:      text,
		CreatedAt: now,
	}
}

func stationName(rec models.StationRecord) string {
	if strings.TrimSpace(rec.Name) != "" {
		return rec.Name
	}
	return rec.ID
}

// approxRemaining renders the window midpoint rounded to whole minutes.
func approxRemaining(w Window) string {
	minutes := int(((w.Lower + w.Upper) / 2).Round(time.Minute) / time.Minute)
	if minutes <= 1 {
		return "~1 minute"
	}
	return fmt.Sprintf("~%d minutes", minutes)
}

func formatDuration(d *int) string {
	if d == nil || *d <= 0 {
		return "?"
	}
	return strconv.Itoa(*d)
}
