package pricing

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Conditions are ANDed; a nil or empty field is not checked.
type Conditions struct {
	HoursBeforeTeeTime    *float64       `json:"hoursBeforeTeeTime,omitempty"`
	MaxHoursBeforeTeeTime *float64       `json:"maxHoursBeforeTeeTime,omitempty"`
	MinOccupancyRate      *float64       `json:"minOccupancyRate,omitempty"`
	DaysOfWeek            []time.Weekday `json:"dayOfWeek,omitempty"`
	CourseIDs             []string       `json:"courseIds,omitempty"`
	BookingTypes          []string       `json:"bookingTypes,omitempty"`
}

type Action struct {
	DiscountPercent int64  `json:"discountPercent"`
	MinPrice        int64  `json:"minPrice"`
	MaxDiscount     *int64 `json:"maxDiscount,omitempty"`
}

type Rule struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Enabled    bool       `json:"enabled"`
	Priority   int        `json:"priority"`
	Conditions Conditions `json:"conditions"`
	Action     Action     `json:"action"`
}

func num(v float64) *float64 { return &v }

// DefaultRules returns a fresh copy of the built-in dumping rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "rule_urgent_6h",
			Name:     "6시간 전 긴급 할인",
			Enabled:  true,
			Priority: 1,
			Conditions: Conditions{
				HoursBeforeTeeTime:    num(6),
				MaxHoursBeforeTeeTime: num(0),
			},
			Action: Action{DiscountPercent: 30, MinPrice: 70000},
		},
		{
			ID:       "rule_urgent_12h",
			Name:     "12시간 전 할인",
			Enabled:  true,
			Priority: 2,
			Conditions: Conditions{
				HoursBeforeTeeTime:    num(12),
				MaxHoursBeforeTeeTime: num(6),
			},
			Action: Action{DiscountPercent: 20, MinPrice: 80000},
		},
		{
			ID:       "rule_tomorrow",
			Name:     "내일 티타임 할인",
			Enabled:  true,
			Priority: 3,
			Conditions: Conditions{
				HoursBeforeTeeTime:    num(24),
				MaxHoursBeforeTeeTime: num(12),
			},
			Action: Action{DiscountPercent: 15, MinPrice: 90000},
		},
		{
			ID:       "rule_weekday_low_occupancy",
			Name:     "평일 저조 예약 할인",
			Enabled:  true,
			Priority: 4,
			Conditions: Conditions{
				HoursBeforeTeeTime: num(48),
				DaysOfWeek:         []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
				MinOccupancyRate:   num(50),
			},
			Action: Action{DiscountPercent: 10, MinPrice: 100000},
		},
	}
}

// LoadRules reads a JSON array of rules, e.g. from DUMPING_RULES_FILE.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("parse rules %s: rule %d has no id", path, i)
		}
		if r.Action.DiscountPercent < 0 || r.Action.DiscountPercent > 100 {
			return nil, fmt.Errorf("parse rules %s: rule %s discountPercent out of range", path, r.ID)
		}
	}
	return rules, nil
}
