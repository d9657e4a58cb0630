package database

import (
	"fmt"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table the engine migrates.
func Models() []any {
	return []any{
		&models.GolfCourse{},
		&models.Manager{},
		&models.Customer{},
		&models.TeeTime{},
		&models.Booking{},
		&models.DumpingLog{},
		&models.NoShow{},
		&models.Notification{},
		&models.Settlement{},
		&models.SettlementItem{},
		&models.SettlementNoShowLine{},
	}
}

// NewPostgresDB opens the store and migrates it. TranslateError maps unique
// violations to gorm.ErrDuplicatedKey, which settlement generation relies on.
func NewPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// At most one open penalty claim per tee-time.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_no_shows_open_tee_time
		ON no_shows (tee_time_id)
		WHERE status NOT IN ('WAIVED')
	`).Error; err != nil {
		return fmt.Errorf("create no-show index: %w", err)
	}
	return nil
}
