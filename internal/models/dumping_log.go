package models

import "time"

type DumpingLog struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	TeeTimeID     string    `gorm:"type:uuid;not null;index" json:"tee_time_id"`
	PreviousPrice int64     `gorm:"not null" json:"previous_price"`
	NewPrice      int64     `gorm:"not null" json:"new_price"`
	RuleID        string    `gorm:"not null" json:"rule_id"`
	AppliedAt     time.Time `gorm:"not null" json:"applied_at"`
}
