package pricing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seoul = time.FixedZone("KST", 9*3600)

func candidate(startsAt time.Time, price int64) Candidate {
	return Candidate{
		TeeTimeID:     "tt-1",
		CourseID:      "course-1",
		StartsAt:      startsAt,
		Price:         price,
		OriginalPrice: price,
		BookingType:   "NORMAL",
	}
}

func TestEvaluate_PriorityFirstMatchWins(t *testing.T) {
	// Thursday 2026-01-08 10:00 KST
	now := time.Date(2026, 1, 8, 10, 0, 0, 0, seoul)
	ev := NewEvaluator(DefaultRules(), seoul)

	res := ev.Evaluate(candidate(now.Add(5*time.Hour), 150000), now, nil)

	require.True(t, res.Matched())
	assert.Equal(t, "rule_urgent_6h", res.Rule.ID)
	assert.Equal(t, int64(105000), res.NewPrice)
	assert.Equal(t, int64(30), res.DiscountPercent)
	assert.True(t, res.PriceChanged)
}

func TestEvaluate_WindowBoundaries(t *testing.T) {
	now := time.Date(2026, 1, 8, 10, 0, 0, 0, seoul)
	ev := NewEvaluator(DefaultRules(), seoul)

	tests := []struct {
		in   time.Duration
		rule string
	}{
		{6 * time.Hour, "rule_urgent_6h"},
		{9 * time.Hour, "rule_urgent_12h"},
		{12 * time.Hour, "rule_urgent_12h"},
		{20 * time.Hour, "rule_tomorrow"},
		{36 * time.Hour, "rule_weekday_low_occupancy"},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			res := ev.Evaluate(candidate(now.Add(tt.in), 200000), now, nil)
			require.True(t, res.Matched())
			assert.Equal(t, tt.rule, res.Rule.ID)
		})
	}
}

func TestEvaluate_NoMatch(t *testing.T) {
	now := time.Date(2026, 1, 8, 10, 0, 0, 0, seoul)
	ev := NewEvaluator(DefaultRules(), seoul)

	res := ev.Evaluate(candidate(now.Add(72*time.Hour), 200000), now, nil)

	assert.False(t, res.Matched())
	assert.Nil(t, res.Rule)
	assert.Equal(t, int64(200000), res.NewPrice)
	assert.False(t, res.PriceChanged)
}

func TestEvaluate_WeekendSkipsWeekdayRule(t *testing.T) {
	// Friday 10:00, tee on Saturday 22:00 is 36h away
	now := time.Date(2026, 1, 9, 10, 0, 0, 0, seoul)
	ev := NewEvaluator(DefaultRules(), seoul)

	res := ev.Evaluate(candidate(now.Add(36*time.Hour), 200000), now, nil)

	assert.False(t, res.Matched())
}

func TestEvaluate_Occupancy(t *testing.T) {
	now := time.Date(2026, 1, 8, 10, 0, 0, 0, seoul)
	ev := NewEvaluator(DefaultRules(), seoul)
	c := candidate(now.Add(36*time.Hour), 200000)

	busy := 75.0
	assert.False(t, ev.Evaluate(c, now, &busy).Matched())

	quiet := 20.0
	res := ev.Evaluate(c, now, &quiet)
	require.True(t, res.Matched())
	assert.Equal(t, int64(180000), res.NewPrice)
}

func TestEvaluate_Idempotent(t *testing.T) {
	now := time.Date(2026, 1, 8, 10, 0, 0, 0, seoul)
	ev := NewEvaluator(DefaultRules(), seoul)
	c := candidate(now.Add(5*time.Hour), 150000)

	first := ev.Evaluate(c, now, nil)
	require.True(t, first.PriceChanged)

	c.Price = first.NewPrice
	second := ev.Evaluate(c, now, nil)
	assert.True(t, second.Matched())
	assert.False(t, second.PriceChanged)
}

func TestEvaluate_DisabledAndCourseFilter(t *testing.T) {
	now := time.Date(2026, 1, 8, 10, 0, 0, 0, seoul)
	rules := DefaultRules()
	rules[0].Enabled = false
	rules[1].Conditions.CourseIDs = []string{"other-course"}
	ev := NewEvaluator(rules, seoul)

	res := ev.Evaluate(candidate(now.Add(5*time.Hour), 200000), now, nil)

	require.True(t, res.Matched())
	assert.Equal(t, "rule_weekday_low_occupancy", res.Rule.ID)
	assert.Equal(t, int64(180000), res.NewPrice)
	assert.Len(t, ev.Rules(), 3)
}

func TestCalculatePrice(t *testing.T) {
	maxDiscount := int64(20000)
	zero := int64(0)

	tests := []struct {
		name     string
		original int64
		action   Action
		want     int64
	}{
		{"exactly at floor", 100000, Action{DiscountPercent: 30, MinPrice: 70000}, 70000},
		{"clamped to floor", 90000, Action{DiscountPercent: 30, MinPrice: 70000}, 70000},
		{"above floor", 150000, Action{DiscountPercent: 30, MinPrice: 70000}, 105000},
		{"rounded down to 1000", 123456, Action{DiscountPercent: 15, MinPrice: 0}, 104000},
		{"max discount cap", 200000, Action{DiscountPercent: 30, MinPrice: 70000, MaxDiscount: &maxDiscount}, 180000},
		{"zero max discount is no cap", 200000, Action{DiscountPercent: 30, MinPrice: 70000, MaxDiscount: &zero}, 140000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculatePrice(tt.original, tt.action))
		})
	}
}

func TestDefaultRules_FreshCopy(t *testing.T) {
	a := DefaultRules()
	a[0].Action.DiscountPercent = 99

	assert.Equal(t, int64(30), DefaultRules()[0].Action.DiscountPercent)
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")
	body := `[{"id":"r1","enabled":true,"priority":1,
		"conditions":{"hoursBeforeTeeTime":3,"dayOfWeek":[0,6]},
		"action":{"discountPercent":40,"minPrice":50000}}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 3.0, *rules[0].Conditions.HoursBeforeTeeTime)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, rules[0].Conditions.DaysOfWeek)

	require.NoError(t, os.WriteFile(path, []byte(`[{"enabled":true}]`), 0o600))
	_, err = LoadRules(path)
	assert.ErrorContains(t, err, "no id")
}
