package sim

import (
	"time"

	"commuter-sim-service/internal/domain"
)

// Pure rate calculations shared by the depot and route spawners.
// No function here holds state or clamps results; callers clamp to >= 0.

// ExtractTemporalMultipliers looks up the hourly rate and day multiplier
// for a timestamp. A missing hourly rate is a ConfigError (tables must be
// complete); a missing day multiplier falls back to 1.0, which is the only
// permitted default.
func ExtractTemporalMultipliers(cfg *domain.SpawnConfiguration, ts time.Time) (base, hourly, day float64, err error) {
	if cfg == nil {
		return 0, 0, 0, &ConfigError{Field: "config", Reason: "nil configuration"}
	}

	hourly, ok := cfg.HourlyRates[ts.Hour()]
	if !ok {
		return 0, 0, 0, &ConfigError{Field: "hourly_rates", Reason: "missing entry for hour " + ts.Format("15")}
	}

	day, ok = cfg.DayMultipliers[int(ts.Weekday())]
	if !ok {
		day = 1.0
	}

	base = cfg.BaseRate
	if base == 0 {
		base = 1.0
	}

	return base, hourly, day, nil
}

// EffectiveRate combines the temporal multipliers into an arrival rate.
func EffectiveRate(base, hourly, day float64) float64 {
	return base * hourly * day
}

// WeightFor returns the contribution of a feature type from a weight
// table. An unknown type contributes zero: that is the inclusion policy
// for unmodeled features, not an error.
func WeightFor(table map[string]domain.FeatureWeight, featureType string, applyPeak bool) float64 {
	fw, ok := table[featureType]
	if !ok {
		return 0
	}
	if applyPeak {
		return fw.Weight * fw.PeakMultiplier
	}
	return fw.Weight
}
