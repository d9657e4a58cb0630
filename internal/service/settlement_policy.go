package service

import (
	"fmt"
	"time"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
)

const basisPoints = 10000

// SettlementPolicy holds fee rates in basis points.
type SettlementPolicy struct {
	PGFeeBP       int64
	CommissionBP  int64
	MinCommission int64
	VATBP         int64
}

func DefaultSettlementPolicy() SettlementPolicy {
	return SettlementPolicy{
		PGFeeBP:       250,
		CommissionBP:  500,
		MinCommission: 1000,
		VATBP:         1000,
	}
}

type Fees struct {
	PGFee      int64
	Commission int64
	VAT        int64
	Net        int64
}

func (p SettlementPolicy) Fees(amount int64) Fees {
	f := Fees{
		PGFee:      amount * p.PGFeeBP / basisPoints,
		Commission: max(amount*p.CommissionBP/basisPoints, p.MinCommission),
	}
	f.VAT = f.Commission * p.VATBP / basisPoints
	f.Net = max(amount-f.PGFee-f.Commission-f.VAT, 0)
	return f
}

// PeriodRange returns the closed date range a run at now settles for period,
// and whether that period is due today. Daily is always due, weekly on
// Mondays, monthly on the 1st.
func PeriodRange(period models.SettlementPeriod, now time.Time, loc *time.Location) (string, string, bool) {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)

	switch period {
	case models.PeriodDaily:
		d := yesterday.Format(models.DateLayout)
		return d, d, true
	case models.PeriodWeekly:
		start := today.AddDate(0, 0, -7)
		return start.Format(models.DateLayout), yesterday.Format(models.DateLayout), today.Weekday() == time.Monday
	case models.PeriodMonthly:
		start := time.Date(yesterday.Year(), yesterday.Month(), 1, 0, 0, 0, 0, loc)
		return start.Format(models.DateLayout), yesterday.Format(models.DateLayout), today.Day() == 1
	default:
		return "", "", false
	}
}

// dateBounds converts a closed local date range into [from, to).
func dateBounds(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(models.DateLayout, start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %q", ErrInvalidPeriod, start)
	}
	last, err := time.ParseInLocation(models.DateLayout, end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %q", ErrInvalidPeriod, end)
	}
	if last.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end before start", ErrInvalidPeriod)
	}
	return from, last.AddDate(0, 0, 1), nil
}
