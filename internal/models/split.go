package models

import (
	"time"

	"github.com/google/uuid"
)

// Split is a named, colored exercise template optionally assigned to weekdays.
type Split struct {
	ID          uuid.UUID      `json:"id"`
	UserID      int            `json:"user_id"`
	Name        string         `json:"name"`
	Color       string         `json:"color"`
	Weekdays    []time.Weekday `json:"weekdays"`
	ExerciseIDs []string       `json:"exercise_ids"`
}

// WeekdayMask packs weekdays into a bitmask (bit 0 = Sunday).
func WeekdayMask(days []time.Weekday) int {
	mask := 0
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			mask |= 1 << uint(d)
		}
	}
	return mask
}

// WeekdaysFromMask is the inverse of WeekdayMask, in Sunday-first order.
func WeekdaysFromMask(mask int) []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if mask&(1<<uint(d)) != 0 {
			days = append(days, d)
		}
	}
	return days
}

// IsScheduledOn reports whether the split is assigned to the weekday of t.
func (s Split) IsScheduledOn(t time.Time) bool {
	return WeekdayMask(s.Weekdays)&(1<<uint(t.Weekday())) != 0
}
