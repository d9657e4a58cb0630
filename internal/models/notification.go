package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotifyBookingConfirmed   NotificationType = "BOOKING_CONFIRMED"
	NotifyPaymentPending     NotificationType = "PAYMENT_PENDING"
	NotifyPaymentReminder    NotificationType = "PAYMENT_REMINDER"
	NotifyRoundReminderD1    NotificationType = "ROUND_REMINDER_D1"
	NotifyRoundReminderD0    NotificationType = "ROUND_REMINDER_D0"
	NotifyNoShowWarning      NotificationType = "NOSHOW_WARNING"
	NotifyNoShowCharged      NotificationType = "NOSHOW_CHARGED"
	NotifyBookingCanceled    NotificationType = "BOOKING_CANCELED"
	NotifyPriceDropped       NotificationType = "PRICE_DROPPED"
	NotifyPenaltyPaidConfirm NotificationType = "PENALTY_PAID_CONFIRM"
	NotifySettlementReady    NotificationType = "SETTLEMENT_READY"
)

type NotificationStatus string

const (
	NotificationPending  NotificationStatus = "PENDING"
	NotificationSent     NotificationStatus = "SENT"
	NotificationFailed   NotificationStatus = "FAILED"
	NotificationCanceled NotificationStatus = "CANCELED"
)

type Notification struct {
	ID           string             `gorm:"type:uuid;primaryKey" json:"id"`
	Type         NotificationType   `gorm:"type:varchar(40);not null" json:"type"`
	Status       NotificationStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_notifications_due,priority:1" json:"status"`
	ScheduledAt  time.Time          `gorm:"not null;index:idx_notifications_due,priority:2" json:"scheduled_at"`
	Recipient    string             `json:"recipient,omitempty"`
	BookingID    *string            `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	DedupeKey    *string            `gorm:"uniqueIndex" json:"-"`
	TemplateData datatypes.JSONMap  `gorm:"type:jsonb" json:"template_data"`
	Attempts     int                `gorm:"not null;default:0" json:"attempts"`
	LastError    string             `json:"last_error,omitempty"`
	MessageID    string             `json:"message_id,omitempty"`
	SentAt       *time.Time         `json:"sent_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
