package workout

import (
	"fmt"
	"sort"
	"time"

	"github.com/claude/splitlog/internal/models"
)

// PeriodSummary holds completed-session totals for one week or month.
type PeriodSummary struct {
	Period        string  `json:"period"`
	Sessions      int     `json:"sessions"`
	TotalSets     int     `json:"total_sets"`
	TotalVolumeKg float64 `json:"total_volume_kg"`
	TotalMinutes  int     `json:"total_minutes"`
}

// ValidBucket reports whether bucket is a supported summary period.
func ValidBucket(bucket string) bool {
	return bucket == "week" || bucket == "month"
}

// Summarize groups completed sessions by week (starting Monday) or month,
// newest period first. Active and cancelled sessions are ignored.
func Summarize(sessions []models.WorkoutSession, bucket string) ([]PeriodSummary, error) {
	if !ValidBucket(bucket) {
		return nil, fmt.Errorf("invalid bucket %q: must be week or month", bucket)
	}

	byPeriod := make(map[string]*PeriodSummary)
	for _, s := range sessions {
		if s.State != models.StateCompleted {
			continue
		}
		key := periodStart(s.StartedAt, bucket).Format("2006-01-02")
		p, ok := byPeriod[key]
		if !ok {
			p = &PeriodSummary{Period: key}
			byPeriod[key] = p
		}
		p.Sessions++
		if s.TotalSets != nil {
			p.TotalSets += *s.TotalSets
		}
		if s.TotalVolumeKg != nil {
			p.TotalVolumeKg += *s.TotalVolumeKg
		}
		if s.DurationMin != nil {
			p.TotalMinutes += *s.DurationMin
		}
	}

	out := make([]PeriodSummary, 0, len(byPeriod))
	for _, p := range byPeriod {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period > out[j].Period })
	return out, nil
}

func periodStart(t time.Time, bucket string) time.Time {
	y, m, d := t.Date()
	if bucket == "month" {
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}
