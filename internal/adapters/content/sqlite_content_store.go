package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"commuter-sim-service/internal/domain"
)

// SQLite-backed implementation of the ContentStore port.
type SqliteContentStore struct{ DB *sql.DB }

func NewSqliteContentStore(db *sql.DB) *SqliteContentStore {
	return &SqliteContentStore{DB: db}
}

type featureWeightJ struct {
	Weight         float64 `json:"weight"`
	PeakMultiplier float64 `json:"peak_multiplier"`
}

func (s *SqliteContentStore) SpawnConfigForDepot(ctx context.Context, depotID int) (*domain.SpawnConfiguration, error) {
	return s.spawnConfig(ctx, "depot", depotID)
}

func (s *SqliteContentStore) SpawnConfigForRoute(ctx context.Context, routeID int) (*domain.SpawnConfiguration, error) {
	return s.spawnConfig(ctx, "route", routeID)
}

func (s *SqliteContentStore) spawnConfig(ctx context.Context, kind string, ownerID int) (*domain.SpawnConfiguration, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite content store: DB is nil")
	}

	query := `
	SELECT
		base_rate,
		spatial_base,
		hourly_rates,
		day_multipliers,
		building_weights,
		poi_weights,
		landuse_weights,
		outbound_bias
	FROM spawn_configs
	WHERE owner_kind = ? AND owner_id = ?;
	`

	var (
		cfg                                     domain.SpawnConfiguration
		hourly, days, buildings, pois, landuses string
	)
	err := s.DB.QueryRowContext(ctx, query, kind, ownerID).Scan(
		&cfg.BaseRate, &cfg.SpatialBase,
		&hourly, &days, &buildings, &pois, &landuses,
		&cfg.OutboundBias,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spawn config: no configuration for %s %d", kind, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("spawn config: query %s %d: %w", kind, ownerID, err)
	}

	if cfg.HourlyRates, err = decodeIntKeyed(hourly); err != nil {
		return nil, fmt.Errorf("spawn config %s/%d: hourly_rates: %w", kind, ownerID, err)
	}
	if cfg.DayMultipliers, err = decodeIntKeyed(days); err != nil {
		return nil, fmt.Errorf("spawn config %s/%d: day_multipliers: %w", kind, ownerID, err)
	}
	if cfg.BuildingWeights, err = decodeWeights(buildings); err != nil {
		return nil, fmt.Errorf("spawn config %s/%d: building_weights: %w", kind, ownerID, err)
	}
	if cfg.POIWeights, err = decodeWeights(pois); err != nil {
		return nil, fmt.Errorf("spawn config %s/%d: poi_weights: %w", kind, ownerID, err)
	}
	if cfg.LanduseWeights, err = decodeWeights(landuses); err != nil {
		return nil, fmt.Errorf("spawn config %s/%d: landuse_weights: %w", kind, ownerID, err)
	}

	return &cfg, nil
}

func (s *SqliteContentStore) RouteByID(ctx context.Context, routeID int) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite content store: DB is nil")
	}

	query := `
	SELECT route_id, name, polyline, total_length_meters
	FROM routes
	WHERE route_id = ?;
	`

	var (
		route domain.Route
		poly  string
	)
	err := s.DB.QueryRowContext(ctx, query, routeID).Scan(&route.RouteID, &route.Name, &poly, &route.TotalLengthMeters)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("route: no route %d", routeID)
	}
	if err != nil {
		return nil, fmt.Errorf("route: query route %d: %w", routeID, err)
	}

	var pairs [][2]float64
	if err := json.Unmarshal([]byte(poly), &pairs); err != nil {
		return nil, fmt.Errorf("route %d: decode polyline: %w", routeID, err)
	}
	route.Polyline = make([]domain.Coordinates, 0, len(pairs))
	for _, p := range pairs {
		route.Polyline = append(route.Polyline, domain.Coordinates{Lat: p[0], Lon: p[1]})
	}

	return &route, nil
}

func (s *SqliteContentStore) DepotByID(ctx context.Context, depotID int) (*domain.Depot, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite content store: DB is nil")
	}

	query := `
	SELECT depot_id, name, lat, lon, capacity
	FROM depots
	WHERE depot_id = ?;
	`

	var depot domain.Depot
	err := s.DB.QueryRowContext(ctx, query, depotID).Scan(
		&depot.DepotID, &depot.Name, &depot.Centroid.Lat, &depot.Centroid.Lon, &depot.Capacity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("depot: no depot %d", depotID)
	}
	if err != nil {
		return nil, fmt.Errorf("depot: query depot %d: %w", depotID, err)
	}

	return &depot, nil
}

func decodeIntKeyed(raw string) (map[int]float64, error) {
	var byName map[string]float64
	if err := json.Unmarshal([]byte(raw), &byName); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	out := make(map[int]float64, len(byName))
	for k, v := range byName {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decode: non-integer key %q", k)
		}
		out[i] = v
	}
	return out, nil
}

func decodeWeights(raw string) (map[string]domain.FeatureWeight, error) {
	var byType map[string]featureWeightJ
	if err := json.Unmarshal([]byte(raw), &byType); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	out := make(map[string]domain.FeatureWeight, len(byType))
	for k, v := range byType {
		out[k] = domain.FeatureWeight{Weight: v.Weight, PeakMultiplier: v.PeakMultiplier}
	}
	return out, nil
}
