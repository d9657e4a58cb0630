package models

import "time"

type SettlementPeriod string

const (
	PeriodDaily   SettlementPeriod = "DAILY"
	PeriodWeekly  SettlementPeriod = "WEEKLY"
	PeriodMonthly SettlementPeriod = "MONTHLY"
)

func (p SettlementPeriod) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

type SettlementStatus string

const (
	SettlementPending     SettlementStatus = "PENDING"
	SettlementCalculated  SettlementStatus = "CALCULATED"
	SettlementConfirmed   SettlementStatus = "CONFIRMED"
	SettlementTransferred SettlementStatus = "TRANSFERRED"
	SettlementCompleted   SettlementStatus = "COMPLETED"
)

var settlementTransitions = map[SettlementStatus][]SettlementStatus{
	SettlementPending:     {SettlementCalculated},
	SettlementCalculated:  {SettlementConfirmed, SettlementPending},
	SettlementConfirmed:   {SettlementTransferred, SettlementPending},
	SettlementTransferred: {SettlementCompleted},
}

// CanTransitionSettlement reports whether from -> to is allowed. The only
// backward edges are the recalculation resets to PENDING.
func CanTransitionSettlement(from, to SettlementStatus) bool {
	for _, s := range settlementTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SettlementScope narrows a settlement to one course or one manager.
// The zero value is platform-wide.
type SettlementScope struct {
	CourseID  string `json:"course_id,omitempty"`
	ManagerID string `json:"manager_id,omitempty"`
}

// Key is the non-null scope column used by the uniqueness constraint.
func (s SettlementScope) Key() string {
	switch {
	case s.CourseID != "":
		return "course:" + s.CourseID
	case s.ManagerID != "":
		return "manager:" + s.ManagerID
	default:
		return ""
	}
}

type Settlement struct {
	ID        string           `gorm:"type:uuid;primaryKey" json:"id"`
	Period    SettlementPeriod `gorm:"type:varchar(10);not null;uniqueIndex:idx_settlement_key,priority:1" json:"period"`
	StartDate string           `gorm:"type:varchar(10);not null;uniqueIndex:idx_settlement_key,priority:2" json:"start_date"`
	EndDate   string           `gorm:"type:varchar(10);not null;uniqueIndex:idx_settlement_key,priority:3" json:"end_date"`
	ScopeKey  string           `gorm:"not null;default:'';uniqueIndex:idx_settlement_key,priority:4" json:"-"`
	CourseID  *string          `gorm:"type:uuid" json:"course_id,omitempty"`
	ManagerID *string          `gorm:"type:uuid" json:"manager_id,omitempty"`

	TotalBookings   int   `gorm:"not null;default:0" json:"total_bookings"`
	TotalAmount     int64 `gorm:"not null;default:0" json:"total_amount"`
	TotalPGFee      int64 `gorm:"column:total_pg_fee;not null;default:0" json:"total_pg_fee"`
	TotalCommission int64 `gorm:"not null;default:0" json:"total_commission"`
	TotalVAT        int64 `gorm:"column:total_vat;not null;default:0" json:"total_vat"`
	TotalNetAmount  int64 `gorm:"not null;default:0" json:"total_net_amount"`

	RefundCount  int   `gorm:"not null;default:0" json:"refund_count"`
	RefundAmount int64 `gorm:"not null;default:0" json:"refund_amount"`

	NoShowCount       int   `gorm:"column:noshow_count;not null;default:0" json:"noshow_count"`
	NoShowPenalty     int64 `gorm:"column:noshow_penalty;not null;default:0" json:"noshow_penalty"`
	NoShowPaidPenalty int64 `gorm:"column:noshow_paid_penalty;not null;default:0" json:"noshow_paid_penalty"`

	Status        SettlementStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CalculatedAt  *time.Time       `json:"calculated_at,omitempty"`
	ConfirmedAt   *time.Time       `json:"confirmed_at,omitempty"`
	TransferredAt *time.Time       `json:"transferred_at,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (s *Settlement) Scope() SettlementScope {
	var scope SettlementScope
	if s.CourseID != nil {
		scope.CourseID = *s.CourseID
	}
	if s.ManagerID != nil {
		scope.ManagerID = *s.ManagerID
	}
	return scope
}

type SettlementItem struct {
	ID            string        `gorm:"type:uuid;primaryKey" json:"id"`
	SettlementID  string        `gorm:"type:uuid;not null;index" json:"settlement_id"`
	BookingID     string        `gorm:"type:uuid;not null" json:"booking_id"`
	CourseID      string        `gorm:"type:uuid;not null" json:"course_id"`
	CourseName    string        `json:"course_name"`
	ManagerID     string        `gorm:"type:uuid;not null" json:"manager_id"`
	ManagerName   string        `json:"manager_name"`
	TeeDate       string        `gorm:"type:varchar(10);not null" json:"tee_date"`
	TeeTime       string        `gorm:"type:varchar(5);not null" json:"tee_time"`
	BookingAmount int64         `gorm:"not null" json:"booking_amount"`
	PGFee         int64         `gorm:"column:pg_fee;not null" json:"pg_fee"`
	Commission    int64         `gorm:"not null" json:"commission"`
	VAT           int64         `gorm:"column:vat;not null" json:"vat"`
	NetAmount     int64         `gorm:"not null" json:"net_amount"`
	BookingStatus BookingStatus `gorm:"type:varchar(20);not null" json:"booking_status"`
}

type SettlementNoShowLine struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	SettlementID string `gorm:"type:uuid;not null;index" json:"settlement_id"`
	CourseID     string `gorm:"type:uuid;not null" json:"course_id"`
	CourseName   string `json:"course_name"`
	Count        int    `gorm:"not null" json:"count"`
	Penalty      int64  `gorm:"not null" json:"penalty"`
	PaidPenalty  int64  `gorm:"not null" json:"paid_penalty"`
}
