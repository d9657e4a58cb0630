package dto

import (
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type NoShowResponse struct {
	ID              string              `json:"id"`
	BookingID       string              `json:"booking_id"`
	TeeTimeID       string              `json:"tee_time_id"`
	CourseID        string              `json:"course_id"`
	CourseName      string              `json:"course_name,omitempty"`
	TeeDate         string              `json:"tee_date,omitempty"`
	TeeTime         string              `json:"tee_time,omitempty"`
	CustomerName    string              `json:"customer_name,omitempty"`
	CustomerPhone   string              `json:"customer_phone,omitempty"`
	Status          models.NoShowStatus `json:"status"`
	BookingAmount   int64               `json:"booking_amount"`
	PenaltyAmount   int64               `json:"penalty_amount"`
	PaidAmount      int64               `json:"paid_amount"`
	DetectedAt      time.Time           `json:"detected_at"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	ConfirmedBy     string              `json:"confirmed_by,omitempty"`
	NotifiedAt      *time.Time          `json:"notified_at,omitempty"`
	PaymentDeadline *time.Time          `json:"payment_deadline,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	DisputeReason   string              `json:"dispute_reason,omitempty"`
	WaiveReason     string              `json:"waive_reason,omitempty"`
	Notes           string              `json:"notes,omitempty"`
}

func ToNoShowResponse(ns *models.NoShow, loc *time.Location) NoShowResponse {
	resp := NoShowResponse{
		ID:              ns.ID,
		BookingID:       ns.BookingID,
		TeeTimeID:       ns.TeeTimeID,
		CourseID:        ns.CourseID,
		Status:          ns.Status,
		BookingAmount:   ns.BookingAmount,
		PenaltyAmount:   ns.PenaltyAmount,
		PaidAmount:      ns.PaidAmount,
		DetectedAt:      ns.DetectedAt,
		ConfirmedAt:     ns.ConfirmedAt,
		ConfirmedBy:     ns.ConfirmedBy,
		NotifiedAt:      ns.NotifiedAt,
		PaymentDeadline: ns.PaymentDeadline,
		PaidAt:          ns.PaidAt,
		DisputeReason:   ns.DisputeReason,
		WaiveReason:     ns.WaiveReason,
		Notes:           ns.Notes,
	}
	if b := ns.Booking; b != nil {
		if tt := b.TeeTime; tt != nil {
			resp.TeeDate = tt.LocalDate(loc)
			resp.TeeTime = tt.LocalTime(loc)
			if tt.Course != nil {
				resp.CourseName = tt.Course.Name
			}
		}
		if c := b.Customer; c != nil {
			resp.CustomerName = c.Name
			resp.CustomerPhone = c.Phone
		}
	}
	return resp
}

type NotificationResponse struct {
	ID          string                    `json:"id"`
	Type        models.NotificationType   `json:"type"`
	Status      models.NotificationStatus `json:"status"`
	Attempts    int                       `json:"attempts"`
	MessageID   string                    `json:"message_id,omitempty"`
	LastError   string                    `json:"last_error,omitempty"`
	ScheduledAt time.Time                 `json:"scheduled_at"`
	SentAt      *time.Time                `json:"sent_at,omitempty"`
}

func ToNotificationResponse(n *models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		Type:        n.Type,
		Status:      n.Status,
		Attempts:    n.Attempts,
		MessageID:   n.MessageID,
		LastError:   n.LastError,
		ScheduledAt: n.ScheduledAt,
		SentAt:      n.SentAt,
	}
}
