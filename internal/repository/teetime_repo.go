package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeeTimeRepository interface {
	FindByID(ctx context.Context, id string) (*models.TeeTime, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.TeeTime, error)
	FindAvailableStartingBetween(ctx context.Context, from, to time.Time) ([]models.TeeTime, error)
	CountForCourseBetween(ctx context.Context, courseID string, from, to time.Time) (total, booked int64, err error)
	UpdatePriceIfUnchanged(ctx context.Context, id string, expected, price int64) (bool, error)
	UpdateStatus(ctx context.Context, id string, status models.TeeTimeStatus) error
	CreateDumpingLog(ctx context.Context, log *models.DumpingLog) error
}

type teeTimeRepository struct {
	db *gorm.DB
}

func NewTeeTimeRepository(db *gorm.DB) TeeTimeRepository {
	return &teeTimeRepository{db: db}
}

func (r *teeTimeRepository) FindByID(ctx context.Context, id string) (*models.TeeTime, error) {
	var tt models.TeeTime
	if err := conn(ctx, r.db).Preload("Course").Preload("Manager").First(&tt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tt, nil
}

// FindByIDForUpdate locks the tee-time row until the surrounding transaction ends.
func (r *teeTimeRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.TeeTime, error) {
	var tt models.TeeTime
	if err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&tt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tt, nil
}

// FindAvailableStartingBetween returns AVAILABLE tee-times with from < starts_at <= to.
func (r *teeTimeRepository) FindAvailableStartingBetween(ctx context.Context, from, to time.Time) ([]models.TeeTime, error) {
	var out []models.TeeTime
	err := conn(ctx, r.db).
		Where("status = ? AND starts_at > ? AND starts_at <= ?", models.TeeTimeAvailable, from, to).
		Order("starts_at ASC").
		Find(&out).Error
	return out, err
}

// CountForCourseBetween counts non-canceled tee-times of a course in [from, to)
// and how many of them are taken.
func (r *teeTimeRepository) CountForCourseBetween(ctx context.Context, courseID string, from, to time.Time) (int64, int64, error) {
	var row struct {
		Total  int64
		Booked int64
	}
	err := conn(ctx, r.db).
		Model(&models.TeeTime{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE status <> ?) AS booked", models.TeeTimeAvailable).
		Where("course_id = ? AND starts_at >= ? AND starts_at < ? AND status <> ?", courseID, from, to, models.TeeTimeCanceled).
		Scan(&row).Error
	return row.Total, row.Booked, err
}

// UpdatePriceIfUnchanged writes price only while the row is still AVAILABLE at
// the expected price. It reports whether a row was written.
func (r *teeTimeRepository) UpdatePriceIfUnchanged(ctx context.Context, id string, expected, price int64) (bool, error) {
	res := conn(ctx, r.db).
		Model(&models.TeeTime{}).
		Where("id = ? AND status = ? AND price = ?", id, models.TeeTimeAvailable, expected).
		Update("price", price)
	return res.RowsAffected == 1, res.Error
}

func (r *teeTimeRepository) UpdateStatus(ctx context.Context, id string, status models.TeeTimeStatus) error {
	return conn(ctx, r.db).
		Model(&models.TeeTime{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *teeTimeRepository) CreateDumpingLog(ctx context.Context, log *models.DumpingLog) error {
	return conn(ctx, r.db).Create(log).Error
}
