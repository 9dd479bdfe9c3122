package models

import (
	"math"
	"testing"
	"time"
)

// TestParseWeight verifies user text is coerced to a weight, with bad input as 0.
func TestParseWeight(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"60", 60},
		{" 102.5 ", 102.5},
		{"102,5", 102.5},
		{"", 0},
		{"abc", 0},
		{"-20", 0},
		{"NaN", 0},
		{"nan", 0},
		{"Inf", 0},
		{"+Inf", 0},
		{"-Inf", 0},
		{"infinity", 0},
		{"1e400", 0},
	}
	for _, tt := range tests {
		if got := ParseWeight(tt.in); got != tt.want {
			t.Errorf("ParseWeight(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestParseReps verifies user text is coerced to a rep count, with bad input as 0.
func TestParseReps(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"8", 8},
		{" 12", 12},
		{"", 0},
		{"eight", 0},
		{"7.5", 0},
		{"-3", 0},
	}
	for _, tt := range tests {
		if got := ParseReps(tt.in); got != tt.want {
			t.Errorf("ParseReps(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// TestSetFieldsNormalizedPounds verifies pound entries are converted to kilograms.
func TestSetFieldsNormalizedPounds(t *testing.T) {
	f := SetFields{Weight: 225, Unit: UnitLb, Reps: 5}.Normalized()
	if math.Abs(f.Weight-102.05828325) > 1e-6 {
		t.Errorf("weight = %v, want 102.058", f.Weight)
	}
	if f.Unit != UnitKg {
		t.Errorf("unit = %q, want %q", f.Unit, UnitKg)
	}
	// Normalizing twice must not convert again.
	if again := f.Normalized(); again.Weight != f.Weight {
		t.Errorf("second normalize weight = %v, want %v", again.Weight, f.Weight)
	}
}

// TestSetFieldsNormalizedClampsNegatives verifies negative and non-finite numbers become 0.
func TestSetFieldsNormalizedClampsNegatives(t *testing.T) {
	dur, dist, rest := -30, -5.0, -60
	f := SetFields{Weight: -100, Reps: -5, DurationSec: &dur, DistanceM: &dist, RestSec: &rest}.Normalized()
	if f.Weight != 0 || f.Reps != 0 {
		t.Errorf("weight, reps = %v, %d, want 0, 0", f.Weight, f.Reps)
	}
	if *f.DurationSec != 0 || *f.DistanceM != 0 || *f.RestSec != 0 {
		t.Errorf("duration, distance, rest = %d, %v, %d, want 0", *f.DurationSec, *f.DistanceM, *f.RestSec)
	}
	if dur != -30 || dist != -5 || rest != -60 {
		t.Errorf("caller values modified: %d, %v, %d", dur, dist, rest)
	}
	if got := (SetFields{Weight: math.NaN(), Reps: 5}).Normalized().Weight; got != 0 {
		t.Errorf("NaN weight = %v, want 0", got)
	}
	if got := (SetFields{Weight: math.Inf(1), Unit: UnitLb}).Normalized().Weight; got != 0 {
		t.Errorf("Inf weight = %v, want 0", got)
	}
	if got := (SetFields{Weight: 80, Reps: 5}).Normalized(); got.Weight != 80 || got.Reps != 5 || got.DurationSec != nil {
		t.Errorf("valid fields changed: %+v", got)
	}
}

// TestSetPatchNormalizedClampsNegatives verifies a patch cannot store negative numbers.
func TestSetPatchNormalizedClampsNegatives(t *testing.T) {
	weight, reps, dist := -40.0, -3, math.Inf(-1)
	p := SetPatch{Weight: &weight, Reps: &reps, DistanceM: &dist}.Normalized()
	if *p.Weight != 0 || *p.Reps != 0 || *p.DistanceM != 0 {
		t.Errorf("weight, reps, distance = %v, %d, %v, want 0", *p.Weight, *p.Reps, *p.DistanceM)
	}
	if p.DurationSec != nil || p.RestSec != nil {
		t.Error("nil fields became set")
	}
	if weight != -40 || reps != -3 {
		t.Errorf("caller values modified: %v, %d", weight, reps)
	}

	s := Set{WeightKg: 100, Reps: 5}
	if got := p.Apply(s).Volume(); got != 0 {
		t.Errorf("volume after patch = %v, want 0", got)
	}
}

// TestSetPatchApply verifies only non-nil patch fields change the set.
func TestSetPatchApply(t *testing.T) {
	rest := 120
	s := Set{WeightKg: 60, Reps: 8, RestSec: &rest}

	weight := 100.0
	warm := true
	patched := SetPatch{Weight: &weight, Unit: UnitLb, IsWarmup: &warm}.Normalized().Apply(s)
	if math.Abs(patched.WeightKg-45.359237) > 1e-9 {
		t.Errorf("weight_kg = %v, want 45.359237", patched.WeightKg)
	}
	if patched.Reps != 8 || !patched.IsWarmup || patched.RestSec == nil || *patched.RestSec != 120 {
		t.Errorf("patched = %+v", patched)
	}
	if s.IsWarmup || s.WeightKg != 60 {
		t.Errorf("original modified: %+v", s)
	}
	if !(SetPatch{Unit: UnitLb}).IsEmpty() {
		t.Error("patch with only a unit should be empty")
	}
}

// TestSessionStateTerminal verifies which states are terminal.
func TestSessionStateTerminal(t *testing.T) {
	if StateActive.IsTerminal() {
		t.Error("active is terminal")
	}
	if !StateCompleted.IsTerminal() || !StateCancelled.IsTerminal() {
		t.Error("completed/cancelled not terminal")
	}
	if SessionState("paused").IsValid() {
		t.Error("paused is valid")
	}
}

// TestWeekdayMaskRoundTrip verifies the weekday bitmask and schedule check.
func TestWeekdayMaskRoundTrip(t *testing.T) {
	days := []time.Weekday{time.Monday, time.Thursday, time.Saturday}
	mask := WeekdayMask(days)
	if mask != 2|16|64 {
		t.Errorf("mask = %d, want %d", mask, 2|16|64)
	}
	got := WeekdaysFromMask(mask)
	if len(got) != 3 || got[0] != time.Monday || got[2] != time.Saturday {
		t.Errorf("weekdays = %v", got)
	}

	split := Split{Weekdays: days}
	if !split.IsScheduledOn(time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC)) { // Thursday
		t.Error("split not scheduled on Thursday")
	}
	if split.IsScheduledOn(time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC)) { // Tuesday
		t.Error("split scheduled on Tuesday")
	}
}
