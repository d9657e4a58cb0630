package service

import (
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"gorm.io/datatypes"
)

// bookingData is the template data shared by customer-facing booking messages.
func bookingData(b *models.Booking, loc *time.Location) datatypes.JSONMap {
	data := datatypes.JSONMap{
		"bookingId": b.ID,
		"amount":    b.Amount,
	}
	if tt := b.TeeTime; tt != nil {
		data["date"] = tt.LocalDate(loc)
		data["time"] = tt.LocalTime(loc)
		if tt.Course != nil {
			data["courseName"] = tt.Course.Name
		}
		if tt.Manager != nil {
			data["managerPhone"] = tt.Manager.Phone
		}
	}
	if c := b.Customer; c != nil {
		data["userName"] = c.Name
		data["userPhone"] = c.Phone
	}
	return data
}

func customerPhone(b *models.Booking) string {
	if b.Customer != nil {
		return b.Customer.Phone
	}
	return ""
}

func managerPhone(b *models.Booking) string {
	if b.TeeTime != nil && b.TeeTime.Manager != nil {
		return b.TeeTime.Manager.Phone
	}
	return ""
}

func dedupeKey(typ models.NotificationType, ids ...string) *string {
	key := string(typ)
	for _, id := range ids {
		key += ":" + id
	}
	return &key
}

func bookingNotification(typ models.NotificationType, b *models.Booking, at time.Time, loc *time.Location, recipient string) *models.Notification {
	id := b.ID
	return &models.Notification{
		Type:         typ,
		Status:       models.NotificationPending,
		ScheduledAt:  at,
		Recipient:    recipient,
		BookingID:    &id,
		DedupeKey:    dedupeKey(typ, b.ID),
		TemplateData: bookingData(b, loc),
	}
}
