package repository

import (
	"context"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettlementFilter struct {
	Period models.SettlementPeriod
	Status models.SettlementStatus
	From   string
	To     string
	Limit  int
	Offset int
}

type SettlementRepository interface {
	// Create returns gorm.ErrDuplicatedKey when the (period, dates, scope) key exists.
	Create(ctx context.Context, s *models.Settlement) error
	FindByKey(ctx context.Context, period models.SettlementPeriod, start, end, scopeKey string) (*models.Settlement, error)
	FindByID(ctx context.Context, id string) (*models.Settlement, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Settlement, error)
	FindByStatus(ctx context.Context, status models.SettlementStatus) ([]models.Settlement, error)
	List(ctx context.Context, filter SettlementFilter) ([]models.Settlement, error)
	Save(ctx context.Context, s *models.Settlement) error
	ReplaceLines(ctx context.Context, settlementID string, items []models.SettlementItem, noShows []models.SettlementNoShowLine) error
	FindItems(ctx context.Context, settlementID string) ([]models.SettlementItem, error)
	FindNoShowLines(ctx context.Context, settlementID string) ([]models.SettlementNoShowLine, error)
}

type settlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) Create(ctx context.Context, s *models.Settlement) error {
	return conn(ctx, r.db).Create(s).Error
}

func (r *settlementRepository) FindByKey(ctx context.Context, period models.SettlementPeriod, start, end, scopeKey string) (*models.Settlement, error) {
	var s models.Settlement
	err := conn(ctx, r.db).
		Where("period = ? AND start_date = ? AND end_date = ? AND scope_key = ?", period, start, end, scopeKey).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settlementRepository) FindByID(ctx context.Context, id string) (*models.Settlement, error) {
	var s models.Settlement
	if err := conn(ctx, r.db).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settlementRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Settlement, error) {
	var s models.Settlement
	if err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settlementRepository) FindByStatus(ctx context.Context, status models.SettlementStatus) ([]models.Settlement, error) {
	var out []models.Settlement
	err := conn(ctx, r.db).Where("status = ?", status).Order("start_date ASC").Find(&out).Error
	return out, err
}

func (r *settlementRepository) List(ctx context.Context, filter SettlementFilter) ([]models.Settlement, error) {
	var out []models.Settlement
	q := conn(ctx, r.db)
	if filter.Period != "" {
		q = q.Where("period = ?", filter.Period)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != "" {
		q = q.Where("start_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("end_date <= ?", filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	err := q.Order("start_date DESC, period ASC").Find(&out).Error
	return out, err
}

func (r *settlementRepository) Save(ctx context.Context, s *models.Settlement) error {
	return conn(ctx, r.db).Save(s).Error
}

// ReplaceLines swaps the item and no-show lines of a settlement. Call it inside
// a transaction so a recalculation never exposes a half-written set.
func (r *settlementRepository) ReplaceLines(ctx context.Context, settlementID string, items []models.SettlementItem, noShows []models.SettlementNoShowLine) error {
	db := conn(ctx, r.db)
	if err := db.Where("settlement_id = ?", settlementID).Delete(&models.SettlementItem{}).Error; err != nil {
		return err
	}
	if err := db.Where("settlement_id = ?", settlementID).Delete(&models.SettlementNoShowLine{}).Error; err != nil {
		return err
	}
	if len(items) > 0 {
		if err := db.CreateInBatches(&items, 200).Error; err != nil {
			return err
		}
	}
	if len(noShows) > 0 {
		if err := db.Create(&noShows).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *settlementRepository) FindItems(ctx context.Context, settlementID string) ([]models.SettlementItem, error) {
	var out []models.SettlementItem
	err := conn(ctx, r.db).
		Where("settlement_id = ?", settlementID).
		Order("tee_date ASC, tee_time ASC").
		Find(&out).Error
	return out, err
}

func (r *settlementRepository) FindNoShowLines(ctx context.Context, settlementID string) ([]models.SettlementNoShowLine, error) {
	var out []models.SettlementNoShowLine
	err := conn(ctx, r.db).
		Where("settlement_id = ?", settlementID).
		Order("course_name ASC").
		Find(&out).Error
	return out, err
}
