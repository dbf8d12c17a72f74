package domain

// Weight of one geospatial feature type in the arrival model.
// PeakMultiplier applies only during peak hours.
type FeatureWeight struct {
	Weight         float64
	PeakMultiplier float64
}

// SpawnConfiguration parameterizes passenger generation for one depot or
// route. It is owned by the content store and treated as immutable for the
// duration of a spawn cycle.
//
// HourlyRates are normalized to the peak hour (peak = 1.0) and must cover
// every hour the simulation runs through; a missing hour is a
// configuration error. DayMultipliers may be sparse: a missing weekday
// falls back to 1.0.
type SpawnConfiguration struct {
	// BaseRate is the demand baseline the temporal multipliers scale.
	// Zero means unset; calculators treat it as 1.0.
	BaseRate float64
	// SpatialBase scales the effective rate into a depot arrival rate.
	SpatialBase    float64
	HourlyRates    map[int]float64
	DayMultipliers map[int]float64

	BuildingWeights map[string]FeatureWeight
	POIWeights      map[string]FeatureWeight
	LanduseWeights  map[string]FeatureWeight

	// Probability that a route-corridor commuter travels outbound.
	// Zero means unset; spawners default to 0.5.
	OutboundBias float64
}
