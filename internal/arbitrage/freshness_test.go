package arbitrage

import (
	"math"
	"testing"
	"time"
)

func TestAgeInfinite(t *testing.T) {
	f := NewFreshness()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	inputs := []string{
		"",
		"   ",
		"0001-01-01T00:00:00",
		"0001-01-01T00:00:00Z",
		"not a date",
		"2024-13-45T99:00:00",
		"12:00:00",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if age := f.Age(now, in); !math.IsInf(age, 1) {
				t.Errorf("Expected +Inf for %q, got %v", in, age)
			}
		})
	}
}

func TestAgeOffset(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		offset   time.Duration
		ts       string
		expected float64
	}{
		{"Same instant", DefaultAgeOffset, "2024-05-01T12:00:00", 300},
		{"Ten minutes old", DefaultAgeOffset, "2024-05-01T11:50:00", 310},
		{"Fractional seconds", DefaultAgeOffset, "2024-05-01T11:59:30.000", 300.5},
		{"Explicit zone", DefaultAgeOffset, "2024-05-01T07:00:00-05:00", 300},
		{"Space separator", DefaultAgeOffset, "2024-05-01 11:00:00", 360},
		{"Future timestamp", DefaultAgeOffset, "2024-05-01T12:30:00", 270},
		{"No offset", 0, "2024-05-01T11:45:00", 15},
		{"Custom offset", -300 * time.Minute, "2024-05-01T11:45:00", -285},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Freshness{Offset: tt.offset}
			if age := f.Age(now, tt.ts); math.Abs(age-tt.expected) > 1e-9 {
				t.Errorf("Expected %v, got %v", tt.expected, age)
			}
		})
	}
}
