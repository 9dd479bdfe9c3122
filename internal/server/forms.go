package server

import (
	"encoding/json"
	"strings"

	"github.com/claude/splitlog/internal/models"
)

// formValue is a numeric field that clients may send either as a JSON number
// or as the raw text of an input box ("102,5", "", "abc").
type formValue string

func (v *formValue) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	*v = formValue(raw)
	return nil
}

func (v formValue) weight() float64 { return models.ParseWeight(string(v)) }
func (v formValue) reps() int       { return models.ParseReps(string(v)) }

type setRequest struct {
	Weight      formValue         `json:"weight"`
	Unit        models.WeightUnit `json:"unit"`
	Reps        formValue         `json:"reps"`
	DurationSec *int              `json:"duration_sec"`
	DistanceM   *float64          `json:"distance_m"`
	RestSec     *int              `json:"rest_sec"`
	IsWarmup    bool              `json:"is_warmup"`
	IsCompleted bool              `json:"is_completed"`
}

func (r setRequest) fields() models.SetFields {
	return models.SetFields{
		Weight:      r.Weight.weight(),
		Unit:        r.Unit,
		Reps:        r.Reps.reps(),
		DurationSec: r.DurationSec,
		DistanceM:   r.DistanceM,
		RestSec:     r.RestSec,
		IsWarmup:    r.IsWarmup,
		IsCompleted: r.IsCompleted,
	}
}

type setPatchRequest struct {
	Weight      *formValue        `json:"weight"`
	Unit        models.WeightUnit `json:"unit"`
	Reps        *formValue        `json:"reps"`
	DurationSec *int              `json:"duration_sec"`
	DistanceM   *float64          `json:"distance_m"`
	RestSec     *int              `json:"rest_sec"`
	IsWarmup    *bool             `json:"is_warmup"`
	IsCompleted *bool             `json:"is_completed"`
}

func (r setPatchRequest) patch() models.SetPatch {
	p := models.SetPatch{
		Unit:        r.Unit,
		DurationSec: r.DurationSec,
		DistanceM:   r.DistanceM,
		RestSec:     r.RestSec,
		IsWarmup:    r.IsWarmup,
		IsCompleted: r.IsCompleted,
	}
	if r.Weight != nil {
		w := r.Weight.weight()
		p.Weight = &w
	}
	if r.Reps != nil {
		n := r.Reps.reps()
		p.Reps = &n
	}
	return p
}
