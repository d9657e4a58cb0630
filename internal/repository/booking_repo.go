package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	SetPaymentKey(ctx context.Context, id, paymentKey string) error
	FindNoShowCandidates(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	FindConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	FindDepositPendingSince(ctx context.Context, before time.Time) ([]models.Booking, error)
	FindForSettlement(ctx context.Context, from, to time.Time, statuses []models.BookingStatus, scope models.SettlementScope) ([]models.Booking, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// withDetails preloads what template data and settlement lines read.
func withDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("TeeTime").Preload("TeeTime.Course").Preload("TeeTime.Manager").Preload("Customer")
}

func (r *bookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := withDetails(conn(ctx, r.db)).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// FindByOrderIDForUpdate locks the booking row; associations are loaded after
// the lock is held.
func (r *bookingRepository) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*models.Booking, error) {
	var b models.Booking
	if err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	if err := withDetails(conn(ctx, r.db)).First(&b, "id = ?", b.ID).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	return conn(ctx, r.db).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *bookingRepository) SetPaymentKey(ctx context.Context, id, paymentKey string) error {
	return conn(ctx, r.db).
		Model(&models.Booking{}).
		Where("id = ?", id).
		Update("payment_key", paymentKey).Error
}

// FindNoShowCandidates returns CONFIRMED bookings on CONFIRMED tee-times with
// from < starts_at <= to that have no no-show record yet.
func (r *bookingRepository) FindNoShowCandidates(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	var out []models.Booking
	err := withDetails(conn(ctx, r.db)).
		Joins("JOIN tee_times ON tee_times.id = bookings.tee_time_id").
		Joins("LEFT JOIN no_shows ON no_shows.booking_id = bookings.id").
		Where("bookings.status = ? AND tee_times.status = ?", models.BookingConfirmed, models.TeeTimeConfirmed).
		Where("tee_times.starts_at > ? AND tee_times.starts_at <= ?", from, to).
		Where("no_shows.id IS NULL").
		Order("tee_times.starts_at ASC").
		Find(&out).Error
	return out, err
}

func (r *bookingRepository) FindConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	var out []models.Booking
	err := withDetails(conn(ctx, r.db)).
		Joins("JOIN tee_times ON tee_times.id = bookings.tee_time_id").
		Where("bookings.status = ? AND tee_times.starts_at > ? AND tee_times.starts_at <= ?", models.BookingConfirmed, from, to).
		Order("tee_times.starts_at ASC").
		Find(&out).Error
	return out, err
}

// FindDepositPendingSince returns DEPOSIT_PENDING bookings last touched at or
// before the given time.
func (r *bookingRepository) FindDepositPendingSince(ctx context.Context, before time.Time) ([]models.Booking, error) {
	var out []models.Booking
	err := withDetails(conn(ctx, r.db)).
		Where("bookings.status = ? AND bookings.updated_at <= ?", models.BookingDepositPending, before).
		Find(&out).Error
	return out, err
}

// FindForSettlement returns bookings whose tee-time starts in [from, to).
func (r *bookingRepository) FindForSettlement(ctx context.Context, from, to time.Time, statuses []models.BookingStatus, scope models.SettlementScope) ([]models.Booking, error) {
	var out []models.Booking
	q := withDetails(conn(ctx, r.db)).
		Joins("JOIN tee_times ON tee_times.id = bookings.tee_time_id").
		Where("bookings.status IN ? AND tee_times.starts_at >= ? AND tee_times.starts_at < ?", statuses, from, to)
	if scope.CourseID != "" {
		q = q.Where("tee_times.course_id = ?", scope.CourseID)
	}
	if scope.ManagerID != "" {
		q = q.Where("tee_times.manager_id = ?", scope.ManagerID)
	}
	err := q.Order("tee_times.starts_at ASC, bookings.id ASC").Find(&out).Error
	return out, err
}
