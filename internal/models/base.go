package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// newID fills an empty primary key before insert.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (t *TeeTime) BeforeCreate(*gorm.DB) error {
	newID(&t.ID)
	return nil
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	newID(&b.ID)
	return nil
}

func (n *NoShow) BeforeCreate(*gorm.DB) error {
	newID(&n.ID)
	return nil
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	newID(&n.ID)
	return nil
}

func (s *Settlement) BeforeCreate(*gorm.DB) error {
	newID(&s.ID)
	return nil
}

func (i *SettlementItem) BeforeCreate(*gorm.DB) error {
	newID(&i.ID)
	return nil
}

func (l *SettlementNoShowLine) BeforeCreate(*gorm.DB) error {
	newID(&l.ID)
	return nil
}

func (l *DumpingLog) BeforeCreate(*gorm.DB) error {
	newID(&l.ID)
	return nil
}
