package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository interface {
	// Create inserts n unless another notification holds the same dedupe key.
	Create(ctx context.Context, n *models.Notification) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	FindDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id, messageID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
	CancelPendingForBooking(ctx context.Context, bookingID string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

var sendable = []models.NotificationStatus{models.NotificationPending, models.NotificationFailed}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) (bool, error) {
	res := conn(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(n)
	return res.RowsAffected == 1, res.Error
}

func (r *notificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := conn(ctx, r.db).First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// FindDue returns PENDING notifications that are due and FAILED ones with
// attempts left, oldest first.
func (r *notificationRepository) FindDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]models.Notification, error) {
	var out []models.Notification
	err := conn(ctx, r.db).
		Where("scheduled_at <= ?", now).
		Where(r.db.Where("status = ?", models.NotificationPending).
			Or("status = ? AND attempts < ?", models.NotificationFailed, maxAttempts)).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *notificationRepository) MarkSent(ctx context.Context, id, messageID string, at time.Time) (bool, error) {
	res := conn(ctx, r.db).
		Model(&models.Notification{}).
		Where("id = ? AND status IN ?", id, sendable).
		Updates(map[string]any{
			"status":     models.NotificationSent,
			"message_id": messageID,
			"sent_at":    at,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
		})
	return res.RowsAffected == 1, res.Error
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	res := conn(ctx, r.db).
		Model(&models.Notification{}).
		Where("id = ? AND status IN ?", id, sendable).
		Updates(map[string]any{
			"status":     models.NotificationFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *notificationRepository) CancelPendingForBooking(ctx context.Context, bookingID string) (int64, error) {
	res := conn(ctx, r.db).
		Model(&models.Notification{}).
		Where("booking_id = ? AND status IN ?", bookingID, sendable).
		Update("status", models.NotificationCanceled)
	return res.RowsAffected, res.Error
}
