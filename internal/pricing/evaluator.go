package pricing

import (
	"math"
	"slices"
	"sort"
	"time"
)

const priceUnit = 1000

// Candidate is the tee-time view the evaluator needs.
type Candidate struct {
	TeeTimeID     string
	CourseID      string
	StartsAt      time.Time
	Price         int64
	OriginalPrice int64
	BookingType   string
}

// Result is Matched or not. Rule is nil exactly when nothing matched, in
// which case NewPrice equals the current price.
type Result struct {
	Rule            *Rule
	HoursUntil      float64
	NewPrice        int64
	DiscountPercent int64
	PriceChanged    bool
}

func (r Result) Matched() bool { return r.Rule != nil }

type Evaluator struct {
	rules []Rule
	loc   *time.Location
}

// NewEvaluator keeps the enabled rules ordered by priority. Equal priorities
// keep their declaration order.
func NewEvaluator(rules []Rule, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	enabled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Priority < enabled[j].Priority })
	return &Evaluator{rules: enabled, loc: loc}
}

func (e *Evaluator) Rules() []Rule {
	return slices.Clone(e.rules)
}

// Evaluate picks the first matching rule. occupancy is a percentage; when nil
// the occupancy condition is not checked.
func (e *Evaluator) Evaluate(c Candidate, now time.Time, occupancy *float64) Result {
	hoursUntil := c.StartsAt.Sub(now).Hours()
	res := Result{HoursUntil: hoursUntil, NewPrice: c.Price}

	for i := range e.rules {
		rule := &e.rules[i]
		if !e.matches(rule.Conditions, c, hoursUntil, occupancy) {
			continue
		}
		original := c.OriginalPrice
		if original <= 0 {
			original = c.Price
		}
		newPrice := CalculatePrice(original, rule.Action)

		matched := *rule
		res.Rule = &matched
		res.NewPrice = newPrice
		res.DiscountPercent = effectivePercent(original, newPrice)
		res.PriceChanged = newPrice != c.Price
		return res
	}
	return res
}

func (e *Evaluator) matches(cond Conditions, c Candidate, hoursUntil float64, occupancy *float64) bool {
	if cond.HoursBeforeTeeTime != nil && hoursUntil > *cond.HoursBeforeTeeTime {
		return false
	}
	if cond.MaxHoursBeforeTeeTime != nil && hoursUntil < *cond.MaxHoursBeforeTeeTime {
		return false
	}
	if len(cond.DaysOfWeek) > 0 && !slices.Contains(cond.DaysOfWeek, c.StartsAt.In(e.loc).Weekday()) {
		return false
	}
	if cond.MinOccupancyRate != nil && occupancy != nil && *occupancy >= *cond.MinOccupancyRate {
		return false
	}
	if len(cond.CourseIDs) > 0 && !slices.Contains(cond.CourseIDs, c.CourseID) {
		return false
	}
	if len(cond.BookingTypes) > 0 && !slices.Contains(cond.BookingTypes, c.BookingType) {
		return false
	}
	return true
}

// CalculatePrice applies a discount action to original and rounds the result
// down to a whole priceUnit. A MaxDiscount of zero or less means no cap.
func CalculatePrice(original int64, a Action) int64 {
	discount := original * a.DiscountPercent / 100
	if a.MaxDiscount != nil && *a.MaxDiscount > 0 && discount > *a.MaxDiscount {
		discount = *a.MaxDiscount
	}
	price := max(original-discount, a.MinPrice)
	return price / priceUnit * priceUnit
}

func effectivePercent(original, price int64) int64 {
	if original <= 0 {
		return 0
	}
	return int64(math.Round(float64(original-price) / float64(original) * 100))
}
