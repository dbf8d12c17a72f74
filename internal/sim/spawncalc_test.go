package sim

import (
	"errors"
	"testing"
	"time"

	"commuter-sim-service/internal/domain"
)

func mondayAt(hour int) time.Time {
	// 2026-03-02 is a Monday.
	return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
}

func TestExtractTemporalMultipliers(t *testing.T) {
	cfg := &domain.SpawnConfiguration{
		BaseRate:       2.0,
		HourlyRates:    map[int]float64{8: 1.5, 14: 0.8},
		DayMultipliers: map[int]float64{1: 1.1},
	}

	base, hourly, day, err := ExtractTemporalMultipliers(cfg, mondayAt(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base != 2.0 || hourly != 1.5 || day != 1.1 {
		t.Fatalf("got base=%v hourly=%v day=%v, want 2.0 1.5 1.1", base, hourly, day)
	}

	if got := EffectiveRate(base, hourly, day); got != 2.0*1.5*1.1 {
		t.Fatalf("effective rate = %v, want %v", got, 2.0*1.5*1.1)
	}
}

func TestExtractTemporalMultipliersMissingHourFails(t *testing.T) {
	cfg := &domain.SpawnConfiguration{
		HourlyRates:    map[int]float64{8: 1.5},
		DayMultipliers: map[int]float64{1: 1.1},
	}

	_, _, _, err := ExtractTemporalMultipliers(cfg, mondayAt(9))
	if err == nil {
		t.Fatalf("missing hourly rate must be an error")
	}

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("error type = %T, want *ConfigError", err)
	}
	if cerr.Field != "hourly_rates" {
		t.Fatalf("field = %q, want hourly_rates", cerr.Field)
	}
}

func TestExtractTemporalMultipliersDayFallback(t *testing.T) {
	cfg := &domain.SpawnConfiguration{
		HourlyRates: map[int]float64{8: 1.5},
	}

	base, _, day, err := ExtractTemporalMultipliers(cfg, mondayAt(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day != 1.0 {
		t.Fatalf("missing day multiplier = %v, want fallback 1.0", day)
	}
	if base != 1.0 {
		t.Fatalf("unset base rate = %v, want 1.0", base)
	}
}

func TestWeightFor(t *testing.T) {
	table := map[string]domain.FeatureWeight{
		"school":      {Weight: 1.2, PeakMultiplier: 1.8},
		"residential": {Weight: 0.4, PeakMultiplier: 1.0},
	}

	if got := WeightFor(table, "school", false); got != 1.2 {
		t.Fatalf("off-peak weight = %v, want 1.2", got)
	}
	if got := WeightFor(table, "school", true); got != 1.2*1.8 {
		t.Fatalf("peak weight = %v, want %v", got, 1.2*1.8)
	}
	if got := WeightFor(table, "stadium", true); got != 0 {
		t.Fatalf("unknown feature weight = %v, want 0", got)
	}
	if got := WeightFor(nil, "school", false); got != 0 {
		t.Fatalf("nil table weight = %v, want 0", got)
	}
}
