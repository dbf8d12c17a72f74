package ports

import (
	"context"

	"commuter-sim-service/internal/domain"
)

// Port: a boundary for retrieving route, depot, and spawn-configuration
// records from the content store. All reads are idempotent; the engine
// refreshes spawn configurations at most once per cycle.
type ContentStore interface {
	// Retrieve the spawn configuration for a depot.
	SpawnConfigForDepot(ctx context.Context, depotID int) (*domain.SpawnConfiguration, error)
	// Retrieve the spawn configuration for a route corridor.
	SpawnConfigForRoute(ctx context.Context, routeID int) (*domain.SpawnConfiguration, error)
	// Retrieve route metadata including the precomputed polyline.
	RouteByID(ctx context.Context, routeID int) (*domain.Route, error)
	// Retrieve depot metadata.
	DepotByID(ctx context.Context, depotID int) (*domain.Depot, error)
}
