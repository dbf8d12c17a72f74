package geospatial

import (
	"context"

	"commuter-sim-service/internal/domain"
	"commuter-sim-service/internal/ports"
)

// MockGeoProvider serves fixed geospatial answers for tests and offline
// simulation runs.
type MockGeoProvider struct {
	BuildingCount int
	Features      []ports.Feature
	Err           error
}

func (m *MockGeoProvider) CountBuildingsNear(ctx context.Context, center domain.Coordinates, radiusMeters float64) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.BuildingCount, nil
}

func (m *MockGeoProvider) FeaturesAlongRoute(ctx context.Context, polyline []domain.Coordinates, bufferMeters float64) ([]ports.Feature, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Features, nil
}
