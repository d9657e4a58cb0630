package models

import "time"

type TeeTimeStatus string

const (
	TeeTimeAvailable      TeeTimeStatus = "AVAILABLE"
	TeeTimeDepositPending TeeTimeStatus = "DEPOSIT_PENDING"
	TeeTimeConfirmed      TeeTimeStatus = "CONFIRMED"
	TeeTimeNoShowClaimed  TeeTimeStatus = "NOSHOW_CLAIMED"
	TeeTimeCompleted      TeeTimeStatus = "COMPLETED"
	TeeTimeCanceled       TeeTimeStatus = "CANCELED"
)

type TeeTime struct {
	ID            string        `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID      string        `gorm:"type:uuid;not null;index" json:"course_id"`
	ManagerID     string        `gorm:"type:uuid;not null;index" json:"manager_id"`
	StartsAt      time.Time     `gorm:"not null;index" json:"starts_at"`
	Price         int64         `gorm:"not null" json:"price"`
	OriginalPrice int64         `gorm:"not null" json:"original_price"`
	BookingType   string        `gorm:"type:varchar(20);not null;default:'NORMAL'" json:"booking_type"`
	Status        TeeTimeStatus `gorm:"type:varchar(20);not null;default:'AVAILABLE';index" json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Course  *GolfCourse `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Manager *Manager    `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
}

// LocalDate is the tee date as YYYY-MM-DD in loc.
func (t *TeeTime) LocalDate(loc *time.Location) string {
	return t.StartsAt.In(loc).Format(DateLayout)
}

// LocalTime is the tee time as HH:MM in loc.
func (t *TeeTime) LocalTime(loc *time.Location) string {
	return t.StartsAt.In(loc).Format("15:04")
}

// Directory tables, read only here.

type GolfCourse struct {
	ID        string `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	ManagerID string `gorm:"type:uuid;index" json:"manager_id"`
}

type Manager struct {
	ID    string `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Customer struct {
	ID    string `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

const DateLayout = "2006-01-02"
