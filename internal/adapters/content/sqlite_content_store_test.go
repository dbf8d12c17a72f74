package content

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const testSeed = `{
  "depots": [
    {"depot_id": 1, "name": "Central Depot", "lat": 41.6938, "lon": -6.3507, "capacity": 12}
  ],
  "routes": [
    {
      "route_id": 101,
      "name": "Campus Loop",
      "polyline": [[41.6938, -6.3507], [41.7004, -6.3388]],
      "total_length_meters": 1200
    }
  ],
  "spawn_configs": [
    {
      "owner_kind": "depot",
      "owner_id": 1,
      "base_rate": 1.0,
      "spatial_base": 75,
      "hourly_rates": {"8": 1.5, "14": 0.8},
      "day_multipliers": {"1": 1.1},
      "outbound_bias": 0.5
    },
    {
      "owner_kind": "route",
      "owner_id": 101,
      "hourly_rates": {"8": 1.5},
      "building_weights": {"apartments": {"weight": 0.8, "peak_multiplier": 1.2}},
      "poi_weights": {"school": {"weight": 1.2, "peak_multiplier": 1.8}},
      "outbound_bias": 0.6
    }
  ]
}`

func seededStore(t *testing.T) *SqliteContentStore {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	seedPath := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(seedPath, []byte(testSeed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if err := SeedFromJSON(db, DialectSQLite, seedPath); err != nil {
		t.Fatalf("seed: %v", err)
	}

	return NewSqliteContentStore(db)
}

func TestSqliteContentStoreDepotConfig(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	cfg, err := store.SpawnConfigForDepot(ctx, 1)
	if err != nil {
		t.Fatalf("depot config: %v", err)
	}
	if cfg.SpatialBase != 75 || cfg.BaseRate != 1.0 {
		t.Fatalf("spatial_base=%v base_rate=%v, want 75 and 1.0", cfg.SpatialBase, cfg.BaseRate)
	}
	if cfg.HourlyRates[8] != 1.5 || cfg.HourlyRates[14] != 0.8 {
		t.Fatalf("hourly rates decoded wrong: %v", cfg.HourlyRates)
	}
	if cfg.DayMultipliers[1] != 1.1 {
		t.Fatalf("day multipliers decoded wrong: %v", cfg.DayMultipliers)
	}
}

func TestSqliteContentStoreRouteConfig(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	cfg, err := store.SpawnConfigForRoute(ctx, 101)
	if err != nil {
		t.Fatalf("route config: %v", err)
	}

	fw, ok := cfg.BuildingWeights["apartments"]
	if !ok || fw.Weight != 0.8 || fw.PeakMultiplier != 1.2 {
		t.Fatalf("building weights decoded wrong: %v", cfg.BuildingWeights)
	}
	fw, ok = cfg.POIWeights["school"]
	if !ok || fw.Weight != 1.2 || fw.PeakMultiplier != 1.8 {
		t.Fatalf("poi weights decoded wrong: %v", cfg.POIWeights)
	}
	if len(cfg.LanduseWeights) != 0 {
		t.Fatalf("unset landuse weights should decode empty, got %v", cfg.LanduseWeights)
	}
	if cfg.OutboundBias != 0.6 {
		t.Fatalf("outbound bias = %v, want 0.6", cfg.OutboundBias)
	}
}

func TestSqliteContentStoreRouteAndDepot(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	route, err := store.RouteByID(ctx, 101)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if route.Name != "Campus Loop" || len(route.Polyline) != 2 {
		t.Fatalf("route decoded wrong: %+v", route)
	}
	if route.Polyline[0].Lat != 41.6938 || route.Polyline[0].Lon != -6.3507 {
		t.Fatalf("polyline order wrong: %+v", route.Polyline[0])
	}

	depot, err := store.DepotByID(ctx, 1)
	if err != nil {
		t.Fatalf("depot: %v", err)
	}
	if depot.Name != "Central Depot" || depot.Capacity != 12 {
		t.Fatalf("depot decoded wrong: %+v", depot)
	}
	if depot.Centroid.Lat != 41.6938 {
		t.Fatalf("depot centroid wrong: %+v", depot.Centroid)
	}
}

func TestSqliteContentStoreMissingRecords(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	if _, err := store.SpawnConfigForDepot(ctx, 99); err == nil {
		t.Fatalf("missing depot config should fail")
	}
	if _, err := store.RouteByID(ctx, 99); err == nil {
		t.Fatalf("missing route should fail")
	}
	if _, err := store.DepotByID(ctx, 99); err == nil {
		t.Fatalf("missing depot should fail")
	}
}

func TestSeedFromJSONValidatesConfigs(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "content.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	bad := `{"spawn_configs": [{"owner_kind": "city", "owner_id": 1, "hourly_rates": {"8": 1.0}}]}`
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if err := SeedFromJSON(db, DialectSQLite, path); err == nil {
		t.Fatalf("invalid owner_kind must be rejected")
	}

	empty := `{"spawn_configs": [{"owner_kind": "depot", "owner_id": 1, "hourly_rates": {}}]}`
	if err := os.WriteFile(path, []byte(empty), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if err := SeedFromJSON(db, DialectSQLite, path); err == nil {
		t.Fatalf("empty hourly_rates must be rejected")
	}
}
