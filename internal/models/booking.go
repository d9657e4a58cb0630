package models

import "time"

type BookingStatus string

const (
	BookingPending        BookingStatus = "PENDING"
	BookingDepositPending BookingStatus = "DEPOSIT_PENDING"
	BookingConfirmed      BookingStatus = "CONFIRMED"
	BookingCanceled       BookingStatus = "CANCELED"
	BookingCompleted      BookingStatus = "COMPLETED"
	BookingNoShowClaimed  BookingStatus = "NOSHOW_CLAIMED"
	BookingNoShowPaid     BookingStatus = "NOSHOW_PAID"
	BookingRefunded       BookingStatus = "REFUNDED"
)

// SettleableBookingStatuses count towards settlement revenue.
var SettleableBookingStatuses = []BookingStatus{BookingConfirmed, BookingCompleted, BookingNoShowPaid}

// RefundedBookingStatuses count towards settlement refund totals.
var RefundedBookingStatuses = []BookingStatus{BookingCanceled, BookingRefunded}

type Booking struct {
	ID         string        `gorm:"type:uuid;primaryKey" json:"id"`
	TeeTimeID  string        `gorm:"type:uuid;not null;index" json:"tee_time_id"`
	CustomerID string        `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Amount     int64         `gorm:"not null" json:"amount"`
	Status     BookingStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	OrderID    string        `gorm:"uniqueIndex;not null" json:"order_id"`
	PaymentKey string        `json:"payment_key,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	TeeTime  *TeeTime  `gorm:"foreignKey:TeeTimeID" json:"tee_time,omitempty"`
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}
