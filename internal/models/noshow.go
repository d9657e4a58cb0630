package models

import "time"

type NoShowStatus string

const (
	NoShowPendingCheck    NoShowStatus = "PENDING_CHECK"
	NoShowWarningSent     NoShowStatus = "WARNING_SENT"
	NoShowManagerReview   NoShowStatus = "MANAGER_REVIEW"
	NoShowConfirmed       NoShowStatus = "CONFIRMED"
	NoShowPenaltyNotified NoShowStatus = "PENALTY_NOTIFIED"
	NoShowPenaltyPaid     NoShowStatus = "PENALTY_PAID"
	NoShowDisputed        NoShowStatus = "DISPUTED"
	NoShowWaived          NoShowStatus = "WAIVED"
)

var noShowTransitions = map[NoShowStatus][]NoShowStatus{
	NoShowPendingCheck:    {NoShowWarningSent, NoShowWaived},
	NoShowWarningSent:     {NoShowManagerReview, NoShowWaived},
	NoShowManagerReview:   {NoShowConfirmed, NoShowWaived, NoShowDisputed},
	NoShowConfirmed:       {NoShowPenaltyNotified, NoShowWaived, NoShowDisputed},
	NoShowPenaltyNotified: {NoShowPenaltyPaid, NoShowDisputed, NoShowWaived},
	NoShowDisputed:        {NoShowConfirmed, NoShowWaived},
}

// CanTransitionNoShow reports whether from -> to is an allowed forward step.
func CanTransitionNoShow(from, to NoShowStatus) bool {
	for _, s := range noShowTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s NoShowStatus) Terminal() bool {
	return len(noShowTransitions[s]) == 0
}

type NoShow struct {
	ID              string       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID       string       `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	TeeTimeID       string       `gorm:"type:uuid;not null;index" json:"tee_time_id"`
	CourseID        string       `gorm:"type:uuid;not null;index" json:"course_id"`
	CustomerID      string       `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Status          NoShowStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	BookingAmount   int64        `gorm:"not null" json:"booking_amount"`
	PenaltyAmount   int64        `gorm:"not null;default:0" json:"penalty_amount"`
	DetectedAt      time.Time    `gorm:"not null" json:"detected_at"`
	ConfirmedAt     *time.Time   `json:"confirmed_at,omitempty"`
	ConfirmedBy     string       `json:"confirmed_by,omitempty"`
	NotifiedAt      *time.Time   `json:"notified_at,omitempty"`
	PaymentDeadline *time.Time   `json:"payment_deadline,omitempty"`
	PaidAt          *time.Time   `json:"paid_at,omitempty"`
	PaidAmount      int64        `gorm:"not null;default:0" json:"paid_amount"`
	DisputeReason   string       `json:"dispute_reason,omitempty"`
	WaiveReason     string       `json:"waive_reason,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
}
