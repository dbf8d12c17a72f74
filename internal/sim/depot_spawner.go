package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"commuter-sim-service/internal/domain"
	"commuter-sim-service/internal/ports"
)

// Defaults applied to reservations a spawner materializes.
type SpawnDefaults struct {
	MaxWait      time.Duration
	Priority     float64
	JitterMeters float64
}

// DepotSpawner converts an effective arrival rate into concrete
// reservations gathered at a depot. Generation is a pure
// generate-and-hand-off step: it never touches reservoir state, and a
// cycle that yields zero commuters is a normal outcome.
type DepotSpawner struct {
	content ports.ContentStore
	geo     ports.GeoProvider
	depot   *domain.Depot
	rng     *rand.Rand

	defaults             SpawnDefaults
	buildingRadiusMeters float64
	compatibleRouteIDs   []int

	mu                sync.Mutex
	lastBuildingCount int
}

func NewDepotSpawner(
	content ports.ContentStore,
	geo ports.GeoProvider,
	depot *domain.Depot,
	routeIDs []int,
	defaults SpawnDefaults,
	seed int64,
) *DepotSpawner {
	if defaults.JitterMeters <= 0 {
		defaults.JitterMeters = 40
	}
	return &DepotSpawner{
		content:              content,
		geo:                  geo,
		depot:                depot,
		rng:                  rand.New(rand.NewSource(seed)),
		defaults:             defaults,
		buildingRadiusMeters: 500,
		compatibleRouteIDs:   routeIDs,
	}
}

// Generate produces this cycle's reservation batch for the depot.
// Collaborator outages surface as a recoverable error with zero
// reservations; the coordinator logs and continues.
func (s *DepotSpawner) Generate(ctx context.Context, now time.Time, window time.Duration) ([]*domain.CommuterReservation, error) {
	cfg, err := s.content.SpawnConfigForDepot(ctx, s.depot.DepotID)
	if err != nil {
		return nil, fmt.Errorf("depot spawner %d: load spawn config: %w: %v", s.depot.DepotID, ErrCollaboratorUnavailable, err)
	}

	count, err := s.geo.CountBuildingsNear(ctx, s.depot.Centroid, s.buildingRadiusMeters)
	if err != nil {
		return nil, fmt.Errorf("depot spawner %d: count buildings: %w: %v", s.depot.DepotID, ErrCollaboratorUnavailable, err)
	}
	s.mu.Lock()
	s.lastBuildingCount = count
	s.mu.Unlock()

	base, hourly, day, err := ExtractTemporalMultipliers(cfg, now)
	if err != nil {
		return nil, fmt.Errorf("depot spawner %d: %w", s.depot.DepotID, err)
	}

	rate := EffectiveRate(base, hourly, day)
	if rate < 0 {
		rate = 0
	}

	lambda := cfg.SpatialBase * rate
	n := Poisson(s.rng, lambda)

	out := make([]*domain.CommuterReservation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &domain.CommuterReservation{
			CommuterID:         uuid.New(),
			Position:           jitterAround(s.rng, s.depot.Centroid, s.defaults.JitterMeters),
			Direction:          domain.DirectionOutbound,
			SpawnTime:          spawnTimeWithin(s.rng, now, window),
			Priority:           s.defaults.Priority,
			MaxWait:            s.defaults.MaxWait,
			CompatibleRouteIDs: s.compatibleRouteIDs,
		})
	}
	return out, nil
}

// BuildingsNearby reports the most recent building count near the depot.
func (s *DepotSpawner) BuildingsNearby() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBuildingCount
}

// jitterAround places a point uniformly within radiusMeters of center.
func jitterAround(rng *rand.Rand, center domain.Coordinates, radiusMeters float64) domain.Coordinates {
	if radiusMeters <= 0 {
		return center
	}
	r := radiusMeters * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi
	return center.OffsetMeters(r*math.Cos(theta), r*math.Sin(theta))
}

// spawnTimeWithin draws a spawn time uniformly inside the elapsed window,
// keeping the spawn_time <= now invariant.
func spawnTimeWithin(rng *rand.Rand, now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return now
	}
	return now.Add(-time.Duration(rng.Float64() * float64(window)))
}
