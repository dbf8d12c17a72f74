package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"commuter-sim-service/internal/domain"
	"commuter-sim-service/internal/ports"
)

// RouteSpawner materializes reservations along a route corridor. Arrivals
// decompose additively: each geospatial feature contributes an independent
// Poisson stream with rate weight x effective_rate, so the corridor total
// is itself Poisson with the summed rate.
type RouteSpawner struct {
	content ports.ContentStore
	geo     ports.GeoProvider
	route   *domain.Route
	rng     *rand.Rand

	defaults     SpawnDefaults
	bufferMeters float64
}

func NewRouteSpawner(
	content ports.ContentStore,
	geo ports.GeoProvider,
	route *domain.Route,
	defaults SpawnDefaults,
	seed int64,
) *RouteSpawner {
	if defaults.JitterMeters <= 0 {
		defaults.JitterMeters = 60
	}
	return &RouteSpawner{
		content:      content,
		geo:          geo,
		route:        route,
		rng:          rand.New(rand.NewSource(seed)),
		defaults:     defaults,
		bufferMeters: 300,
	}
}

func (s *RouteSpawner) Generate(ctx context.Context, now time.Time, window time.Duration) ([]*domain.CommuterReservation, error) {
	cfg, err := s.content.SpawnConfigForRoute(ctx, s.route.RouteID)
	if err != nil {
		return nil, fmt.Errorf("route spawner %d: load spawn config: %w: %v", s.route.RouteID, ErrCollaboratorUnavailable, err)
	}

	features, err := s.geo.FeaturesAlongRoute(ctx, s.route.Polyline, s.bufferMeters)
	if err != nil {
		return nil, fmt.Errorf("route spawner %d: features along route: %w: %v", s.route.RouteID, ErrCollaboratorUnavailable, err)
	}

	base, hourly, day, err := ExtractTemporalMultipliers(cfg, now)
	if err != nil {
		return nil, fmt.Errorf("route spawner %d: %w", s.route.RouteID, err)
	}

	rate := EffectiveRate(base, hourly, day)
	if rate < 0 {
		rate = 0
	}

	// Peak feature multipliers apply only when the hour is at the peak of
	// the normalized hourly table.
	applyPeak := hourly >= 1.0

	outboundBias := cfg.OutboundBias
	if outboundBias == 0 {
		outboundBias = 0.5
	}

	var out []*domain.CommuterReservation
	for _, f := range features {
		w := WeightFor(s.weightTable(cfg, f.Category), f.Type, applyPeak)
		if w <= 0 {
			continue
		}

		n := Poisson(s.rng, w*rate)
		for i := 0; i < n; i++ {
			dir := domain.DirectionOutbound
			if s.rng.Float64() >= outboundBias {
				dir = domain.DirectionInbound
			}
			out = append(out, &domain.CommuterReservation{
				CommuterID:         uuid.New(),
				Position:           jitterAround(s.rng, f.Position, s.defaults.JitterMeters),
				Direction:          dir,
				SpawnTime:          spawnTimeWithin(s.rng, now, window),
				Priority:           s.defaults.Priority,
				MaxWait:            s.defaults.MaxWait,
				CompatibleRouteIDs: []int{s.route.RouteID},
			})
		}
	}
	return out, nil
}

func (s *RouteSpawner) weightTable(cfg *domain.SpawnConfiguration, category string) map[string]domain.FeatureWeight {
	switch category {
	case ports.FeatureCategoryBuilding:
		return cfg.BuildingWeights
	case ports.FeatureCategoryPOI:
		return cfg.POIWeights
	case ports.FeatureCategoryLanduse:
		return cfg.LanduseWeights
	default:
		return nil
	}
}
