package models

import (
	"math"
	"strconv"
	"strings"
)

// WeightUnit is the unit a weight was entered in.
type WeightUnit string

const (
	UnitKg WeightUnit = "kg"
	UnitLb WeightUnit = "lb"
)

const kgPerLb = 0.45359237

// ToKg converts v from u to kilograms. An empty unit means kilograms.
func (u WeightUnit) ToKg(v float64) float64 {
	if u == UnitLb {
		return v * kgPerLb
	}
	return v
}

// IsValid reports whether u is empty or a known unit.
func (u WeightUnit) IsValid() bool {
	return u == "" || u == UnitKg || u == UnitLb
}

// ParseWeight coerces user-entered text to a weight. Empty or non-numeric input
// yields 0. European decimal commas are accepted ("102,5").
func ParseWeight(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return nonNegative(f)
}

// nonNegative maps negative, NaN and infinite values to 0.
func nonNegative(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func nonNegativePtr[T int | float64](v *T) *T {
	if v == nil {
		return nil
	}
	c := T(nonNegative(float64(*v)))
	return &c
}

// ParseReps coerces user-entered text to a rep count. Empty or non-numeric input yields 0.
func ParseReps(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
