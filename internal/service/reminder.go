package service

import (
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
)

const (
	dayBeforeReminderHour = 18
	sameDayReminderLead   = 2 * time.Hour
)

type Reminder struct {
	Type models.NotificationType
	At   time.Time
}

// ReminderSchedule returns the round reminders for a tee-time that are still
// ahead of now: D-1 at 18:00 local on the previous day and D-0 two hours
// before the tee-time.
func ReminderSchedule(startsAt, now time.Time, loc *time.Location) []Reminder {
	local := startsAt.In(loc)
	y, m, d := local.Date()

	candidates := []Reminder{
		{Type: models.NotifyRoundReminderD1, At: time.Date(y, m, d-1, dayBeforeReminderHour, 0, 0, 0, loc)},
		{Type: models.NotifyRoundReminderD0, At: local.Add(-sameDayReminderLead)},
	}

	out := make([]Reminder, 0, len(candidates))
	for _, r := range candidates {
		if r.At.After(now) {
			out = append(out, r)
		}
	}
	return out
}

// roundReminders builds the reminder notifications for a confirmed booking.
func roundReminders(b *models.Booking, now time.Time, loc *time.Location) []*models.Notification {
	if b.TeeTime == nil {
		return nil
	}
	var out []*models.Notification
	for _, r := range ReminderSchedule(b.TeeTime.StartsAt, now, loc) {
		out = append(out, bookingNotification(r.Type, b, r.At, loc, customerPhone(b)))
	}
	return out
}
