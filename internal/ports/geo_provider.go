package ports

import (
	"context"

	"commuter-sim-service/internal/domain"
)

// A geospatial feature found along a route buffer.
// Category selects the weight table (building, poi, landuse); Type is the
// feature subtype within that table (e.g. "residential", "school").
type Feature struct {
	Category string
	Type     string
	Position domain.Coordinates
}

const (
	FeatureCategoryBuilding = "building"
	FeatureCategoryPOI      = "poi"
	FeatureCategoryLanduse  = "landuse"
)

// Contract for the external geospatial proximity service. Both operations
// are read-only and idempotent; callers may cache results per cycle.
// Unavailability is a recoverable condition: a failing cycle yields zero
// spawns and must not stop subsequent cycles.
type GeoProvider interface {
	// Count buildings within radiusMeters of a point.
	CountBuildingsNear(ctx context.Context, center domain.Coordinates, radiusMeters float64) (int, error)
	// List weighted features within bufferMeters of the polyline.
	FeaturesAlongRoute(ctx context.Context, polyline []domain.Coordinates, bufferMeters float64) ([]Feature, error)
}

// Optional per-cycle cache in front of a GeoProvider.
type FeatureCache interface {
	// Fetch a cached building count; ok reports a cache hit.
	GetCount(ctx context.Context, key string) (count int, ok bool, err error)
	// Store a building count.
	PutCount(ctx context.Context, key string, count int) error
	// Fetch cached route features; ok reports a cache hit.
	GetFeatures(ctx context.Context, key string) (features []Feature, ok bool, err error)
	// Store route features.
	PutFeatures(ctx context.Context, key string, features []Feature) error
}
