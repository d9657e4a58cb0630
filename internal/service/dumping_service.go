package service

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
	"github.com/Eursukkul/teetime-lifecycle/internal/pricing"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dumpingHorizon = 48 * time.Hour

type PriceUpdate struct {
	TeeTimeID       string `json:"tee_time_id"`
	RuleID          string `json:"rule_id"`
	PreviousPrice   int64  `json:"previous_price"`
	NewPrice        int64  `json:"new_price"`
	DiscountPercent int64  `json:"discount_percent"`
}

type DumpingSummary struct {
	BatchSummary
	Updates []PriceUpdate `json:"updates"`
}

type DumpingService interface {
	Run(ctx context.Context) (*DumpingSummary, error)
	// ReevaluateTeeTime applies the rules to one tee-time. It returns nil when
	// the price did not change.
	ReevaluateTeeTime(ctx context.Context, id string) (*PriceUpdate, error)
}

type dumpingService struct {
	tx          repository.Transactor
	teeTimeRepo repository.TeeTimeRepository
	evaluator   *pricing.Evaluator
	loc         *time.Location
	now         func() time.Time
	log         *logrus.Entry
}

func NewDumpingService(tx repository.Transactor, teeTimeRepo repository.TeeTimeRepository, evaluator *pricing.Evaluator, loc *time.Location) DumpingService {
	return &dumpingService{
		tx:          tx,
		teeTimeRepo: teeTimeRepo,
		evaluator:   evaluator,
		loc:         loc,
		now:         time.Now,
		log:         logrus.WithField("component", "dumping"),
	}
}

func (s *dumpingService) Run(ctx context.Context) (*DumpingSummary, error) {
	now := s.now()
	teeTimes, err := s.teeTimeRepo.FindAvailableStartingBetween(ctx, now, now.Add(dumpingHorizon))
	if err != nil {
		return nil, err
	}

	sum := &DumpingSummary{BatchSummary: newBatchSummary(), Updates: []PriceUpdate{}}
	occ := make(occupancyCache)
	for i := range teeTimes {
		tt := &teeTimes[i]
		sum.Checked++
		upd, err := s.apply(ctx, tt, now, occ)
		switch {
		case err != nil:
			sum.fail(s.log, tt.ID, err)
		case upd == nil:
			sum.Skipped++
		default:
			sum.Updated++
			sum.Updates = append(sum.Updates, *upd)
		}
	}

	s.log.WithFields(logrus.Fields{
		"checked": sum.Checked,
		"updated": sum.Updated,
		"failed":  sum.Failed,
	}).Info("dumping run finished")
	return sum, nil
}

func (s *dumpingService) ReevaluateTeeTime(ctx context.Context, id string) (*PriceUpdate, error) {
	tt, err := s.teeTimeRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeeTimeNotFound
		}
		return nil, err
	}
	now := s.now()
	if tt.Status != models.TeeTimeAvailable || !tt.StartsAt.After(now) || tt.StartsAt.After(now.Add(dumpingHorizon)) {
		return nil, nil
	}
	return s.apply(ctx, tt, now, make(occupancyCache))
}

// apply writes a changed price together with its log row. A concurrent change
// to the tee-time makes the conditional update miss, which counts as a skip.
func (s *dumpingService) apply(ctx context.Context, tt *models.TeeTime, now time.Time, occ occupancyCache) (*PriceUpdate, error) {
	rate, err := s.occupancy(ctx, tt, occ)
	if err != nil {
		return nil, err
	}

	res := s.evaluator.Evaluate(pricing.Candidate{
		TeeTimeID:     tt.ID,
		CourseID:      tt.CourseID,
		StartsAt:      tt.StartsAt,
		Price:         tt.Price,
		OriginalPrice: tt.OriginalPrice,
		BookingType:   tt.BookingType,
	}, now, rate)
	if !res.Matched() || !res.PriceChanged {
		return nil, nil
	}

	upd := &PriceUpdate{
		TeeTimeID:       tt.ID,
		RuleID:          res.Rule.ID,
		PreviousPrice:   tt.Price,
		NewPrice:        res.NewPrice,
		DiscountPercent: res.DiscountPercent,
	}
	var written bool
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.teeTimeRepo.UpdatePriceIfUnchanged(ctx, tt.ID, tt.Price, res.NewPrice)
		if err != nil || !ok {
			return err
		}
		written = true
		return s.teeTimeRepo.CreateDumpingLog(ctx, &models.DumpingLog{
			TeeTimeID:     tt.ID,
			PreviousPrice: tt.Price,
			NewPrice:      res.NewPrice,
			RuleID:        res.Rule.ID,
			AppliedAt:     now,
		})
	})
	if err != nil || !written {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"tee_time_id": tt.ID,
		"rule_id":     upd.RuleID,
		"from":        upd.PreviousPrice,
		"to":          upd.NewPrice,
	}).Info("price updated")
	return upd, nil
}

// occupancyCache holds booked percentages per course and local day for one run.
type occupancyCache map[string]*float64

func (s *dumpingService) occupancy(ctx context.Context, tt *models.TeeTime, cache occupancyCache) (*float64, error) {
	key := tt.CourseID + "|" + tt.LocalDate(s.loc)
	if rate, ok := cache[key]; ok {
		return rate, nil
	}

	local := tt.StartsAt.In(s.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	total, booked, err := s.teeTimeRepo.CountForCourseBetween(ctx, tt.CourseID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	var rate *float64
	if total > 0 {
		r := float64(booked) / float64(total) * 100
		rate = &r
	}
	cache[key] = rate
	return rate, nil
}
