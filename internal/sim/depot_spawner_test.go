package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"commuter-sim-service/internal/adapters/geospatial"
	"commuter-sim-service/internal/domain"
)

type stubContentStore struct {
	depotCfg *domain.SpawnConfiguration
	routeCfg *domain.SpawnConfiguration
	err      error
}

func (s *stubContentStore) SpawnConfigForDepot(ctx context.Context, depotID int) (*domain.SpawnConfiguration, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.depotCfg, nil
}

func (s *stubContentStore) SpawnConfigForRoute(ctx context.Context, routeID int) (*domain.SpawnConfiguration, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.routeCfg, nil
}

func (s *stubContentStore) RouteByID(ctx context.Context, routeID int) (*domain.Route, error) {
	return nil, errors.New("not implemented")
}

func (s *stubContentStore) DepotByID(ctx context.Context, depotID int) (*domain.Depot, error) {
	return nil, errors.New("not implemented")
}

func fullHourlyRates(rate float64) map[int]float64 {
	out := make(map[int]float64, 24)
	for h := 0; h < 24; h++ {
		out[h] = rate
	}
	return out
}

func testDepot() *domain.Depot {
	return &domain.Depot{
		DepotID:  1,
		Name:     "Central Depot",
		Centroid: domain.Coordinates{Lat: 41.6938, Lon: -6.3507},
		Capacity: 12,
	}
}

func TestDepotSpawnerGeneratesAroundDepot(t *testing.T) {
	store := &stubContentStore{
		depotCfg: &domain.SpawnConfiguration{
			SpatialBase: 75,
			HourlyRates: fullHourlyRates(1.0),
		},
	}
	geo := &geospatial.MockGeoProvider{BuildingCount: 120}
	depot := testDepot()

	s := NewDepotSpawner(store, geo, depot, []int{101}, SpawnDefaults{MaxWait: 30 * time.Minute, Priority: 1.0}, 42)

	now := mondayAt(8)
	window := 30 * time.Second
	batch, err := s.Generate(context.Background(), now, window)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// lambda = spatial_base * rate = 75; Poisson draws stay well inside
	// this band for any seed.
	if len(batch) < 40 || len(batch) > 115 {
		t.Fatalf("batch size = %d, want a draw around mean 75", len(batch))
	}

	for _, res := range batch {
		if res.Direction != domain.DirectionOutbound {
			t.Fatalf("depot commuter direction = %q, want outbound", res.Direction)
		}
		if res.SpawnTime.After(now) || now.Sub(res.SpawnTime) > window {
			t.Fatalf("spawn time %v outside window ending at %v", res.SpawnTime, now)
		}
		if d := domain.HaversineMeters(depot.Centroid, res.Position); d > 45 {
			t.Fatalf("commuter placed %.1fm from depot, want within jitter radius", d)
		}
		if len(res.CompatibleRouteIDs) != 1 || res.CompatibleRouteIDs[0] != 101 {
			t.Fatalf("compatible routes = %v, want [101]", res.CompatibleRouteIDs)
		}
		if res.MaxWait != 30*time.Minute {
			t.Fatalf("max wait = %s, want 30m", res.MaxWait)
		}
	}

	if s.BuildingsNearby() != 120 {
		t.Fatalf("building telemetry = %d, want 120", s.BuildingsNearby())
	}
}

func TestDepotSpawnerDeterministicForSeed(t *testing.T) {
	store := &stubContentStore{
		depotCfg: &domain.SpawnConfiguration{
			SpatialBase: 10,
			HourlyRates: fullHourlyRates(1.0),
		},
	}
	geo := &geospatial.MockGeoProvider{BuildingCount: 50}

	a := NewDepotSpawner(store, geo, testDepot(), []int{101}, SpawnDefaults{}, 7)
	b := NewDepotSpawner(store, geo, testDepot(), []int{101}, SpawnDefaults{}, 7)

	now := mondayAt(12)
	batchA, err := a.Generate(context.Background(), now, time.Minute)
	if err != nil {
		t.Fatalf("generate a: %v", err)
	}
	batchB, err := b.Generate(context.Background(), now, time.Minute)
	if err != nil {
		t.Fatalf("generate b: %v", err)
	}

	if len(batchA) != len(batchB) {
		t.Fatalf("batch sizes differ for identical seeds: %d vs %d", len(batchA), len(batchB))
	}
	for i := range batchA {
		if batchA[i].Position != batchB[i].Position {
			t.Fatalf("positions differ at %d for identical seeds", i)
		}
	}
}

func TestDepotSpawnerZeroRateYieldsNothing(t *testing.T) {
	store := &stubContentStore{
		depotCfg: &domain.SpawnConfiguration{
			SpatialBase: 75,
			HourlyRates: fullHourlyRates(0),
		},
	}
	s := NewDepotSpawner(store, &geospatial.MockGeoProvider{}, testDepot(), nil, SpawnDefaults{}, 1)

	batch, err := s.Generate(context.Background(), mondayAt(3), time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("batch size = %d, want 0 at zero rate", len(batch))
	}
}

func TestDepotSpawnerCollaboratorOutage(t *testing.T) {
	outage := errors.New("connection refused")

	// content store down
	s := NewDepotSpawner(&stubContentStore{err: outage}, &geospatial.MockGeoProvider{}, testDepot(), nil, SpawnDefaults{}, 1)
	batch, err := s.Generate(context.Background(), mondayAt(8), time.Minute)
	if !errors.Is(err, ErrCollaboratorUnavailable) {
		t.Fatalf("error = %v, want ErrCollaboratorUnavailable", err)
	}
	if len(batch) != 0 {
		t.Fatalf("failed cycle produced %d reservations, want 0", len(batch))
	}

	// geospatial provider down
	store := &stubContentStore{
		depotCfg: &domain.SpawnConfiguration{SpatialBase: 75, HourlyRates: fullHourlyRates(1.0)},
	}
	s = NewDepotSpawner(store, &geospatial.MockGeoProvider{Err: outage}, testDepot(), nil, SpawnDefaults{}, 1)
	if _, err := s.Generate(context.Background(), mondayAt(8), time.Minute); !errors.Is(err, ErrCollaboratorUnavailable) {
		t.Fatalf("error = %v, want ErrCollaboratorUnavailable", err)
	}
}

func TestDepotSpawnerMissingHourIsConfigError(t *testing.T) {
	store := &stubContentStore{
		depotCfg: &domain.SpawnConfiguration{
			SpatialBase: 75,
			HourlyRates: map[int]float64{8: 1.0},
		},
	}
	s := NewDepotSpawner(store, &geospatial.MockGeoProvider{}, testDepot(), nil, SpawnDefaults{}, 1)

	_, err := s.Generate(context.Background(), mondayAt(9), time.Minute)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want *ConfigError for the missing hour", err)
	}
}
