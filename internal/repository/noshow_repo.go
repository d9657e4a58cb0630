package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NoShowFilter struct {
	Status   models.NoShowStatus
	CourseID string
	Limit    int
	Offset   int
}

// NoShowStatusSummary is one row of a GROUP BY status aggregate.
type NoShowStatusSummary struct {
	Status  models.NoShowStatus
	Count   int64
	Penalty int64
	Paid    int64
}

type NoShowRepository interface {
	Create(ctx context.Context, ns *models.NoShow) error
	FindByID(ctx context.Context, id string) (*models.NoShow, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.NoShow, error)
	FindConfirmedUnnotified(ctx context.Context) ([]models.NoShow, error)
	Save(ctx context.Context, ns *models.NoShow) error
	List(ctx context.Context, filter NoShowFilter) ([]models.NoShow, error)
	SummarizeByStatus(ctx context.Context, courseID string) ([]NoShowStatusSummary, error)
	FindForSettlement(ctx context.Context, from, to time.Time, statuses []models.NoShowStatus, scope models.SettlementScope) ([]models.NoShow, error)
}

type noShowRepository struct {
	db *gorm.DB
}

func NewNoShowRepository(db *gorm.DB) NoShowRepository {
	return &noShowRepository{db: db}
}

func noShowDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("Booking").
		Preload("Booking.TeeTime").
		Preload("Booking.TeeTime.Course").
		Preload("Booking.TeeTime.Manager").
		Preload("Booking.Customer")
}

func (r *noShowRepository) Create(ctx context.Context, ns *models.NoShow) error {
	return conn(ctx, r.db).Omit(clause.Associations).Create(ns).Error
}

func (r *noShowRepository) FindByID(ctx context.Context, id string) (*models.NoShow, error) {
	var ns models.NoShow
	if err := noShowDetails(conn(ctx, r.db)).First(&ns, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ns, nil
}

func (r *noShowRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.NoShow, error) {
	var ns models.NoShow
	if err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&ns, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := noShowDetails(conn(ctx, r.db)).First(&ns, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ns, nil
}

func (r *noShowRepository) FindConfirmedUnnotified(ctx context.Context) ([]models.NoShow, error) {
	var out []models.NoShow
	err := conn(ctx, r.db).
		Where("status = ? AND notified_at IS NULL", models.NoShowConfirmed).
		Order("detected_at ASC").
		Find(&out).Error
	return out, err
}

func (r *noShowRepository) Save(ctx context.Context, ns *models.NoShow) error {
	return conn(ctx, r.db).Omit(clause.Associations).Save(ns).Error
}

func (r *noShowRepository) List(ctx context.Context, filter NoShowFilter) ([]models.NoShow, error) {
	var out []models.NoShow
	q := noShowDetails(conn(ctx, r.db))
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CourseID != "" {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	err := q.Order("detected_at DESC").Find(&out).Error
	return out, err
}

func (r *noShowRepository) SummarizeByStatus(ctx context.Context, courseID string) ([]NoShowStatusSummary, error) {
	var out []NoShowStatusSummary
	q := conn(ctx, r.db).
		Model(&models.NoShow{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(penalty_amount), 0) AS penalty, COALESCE(SUM(paid_amount), 0) AS paid")
	if courseID != "" {
		q = q.Where("course_id = ?", courseID)
	}
	err := q.Group("status").Scan(&out).Error
	return out, err
}

// FindForSettlement returns no-shows whose tee-time starts in [from, to).
func (r *noShowRepository) FindForSettlement(ctx context.Context, from, to time.Time, statuses []models.NoShowStatus, scope models.SettlementScope) ([]models.NoShow, error) {
	var out []models.NoShow
	q := noShowDetails(conn(ctx, r.db)).
		Joins("JOIN tee_times ON tee_times.id = no_shows.tee_time_id").
		Where("no_shows.status IN ? AND tee_times.starts_at >= ? AND tee_times.starts_at < ?", statuses, from, to)
	if scope.CourseID != "" {
		q = q.Where("tee_times.course_id = ?", scope.CourseID)
	}
	if scope.ManagerID != "" {
		q = q.Where("tee_times.manager_id = ?", scope.ManagerID)
	}
	err := q.Order("no_shows.course_id ASC").Find(&out).Error
	return out, err
}
