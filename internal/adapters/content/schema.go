package content

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Dialect selects the SQL flavor for statements that differ between the
// embedded SQLite store and a shared Postgres deployment.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Initialize the content schema. The DDL is portable across both
// supported dialects.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDepotsQuery := `
	CREATE TABLE IF NOT EXISTS depots (
		depot_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		route_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		polyline TEXT NOT NULL,
		total_length_meters REAL NOT NULL
	);
	`

	createSpawnConfigsQuery := `
	CREATE TABLE IF NOT EXISTS spawn_configs (
		owner_kind TEXT NOT NULL,
		owner_id INTEGER NOT NULL,
		base_rate REAL NOT NULL DEFAULT 1.0,
		spatial_base REAL NOT NULL DEFAULT 0,
		hourly_rates TEXT NOT NULL,
		day_multipliers TEXT NOT NULL DEFAULT '{}',
		building_weights TEXT NOT NULL DEFAULT '{}',
		poi_weights TEXT NOT NULL DEFAULT '{}',
		landuse_weights TEXT NOT NULL DEFAULT '{}',
		outbound_bias REAL NOT NULL DEFAULT 0,
		PRIMARY KEY (owner_kind, owner_id)
	);
	`

	statements := []string{
		createDepotsQuery,
		createRoutesQuery,
		createSpawnConfigsQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type DepotSeed struct {
	DepotID  int     `json:"depot_id"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Capacity int     `json:"capacity"`
}

type RouteSeed struct {
	RouteID           int          `json:"route_id"`
	Name              string       `json:"name"`
	Polyline          [][2]float64 `json:"polyline"`
	TotalLengthMeters float64      `json:"total_length_meters"`
}

type SpawnConfigSeed struct {
	OwnerKind       string                    `json:"owner_kind"`
	OwnerID         int                       `json:"owner_id"`
	BaseRate        float64                   `json:"base_rate"`
	SpatialBase     float64                   `json:"spatial_base"`
	HourlyRates     map[string]float64        `json:"hourly_rates"`
	DayMultipliers  map[string]float64        `json:"day_multipliers"`
	BuildingWeights map[string]featureWeightJ `json:"building_weights"`
	POIWeights      map[string]featureWeightJ `json:"poi_weights"`
	LanduseWeights  map[string]featureWeightJ `json:"landuse_weights"`
	OutboundBias    float64                   `json:"outbound_bias"`
}

type ContentSeed struct {
	Depots       []DepotSeed       `json:"depots"`
	Routes       []RouteSeed       `json:"routes"`
	SpawnConfigs []SpawnConfigSeed `json:"spawn_configs"`
}

// Populate the content tables from a JSON file. Upserts are rendered for
// the given dialect; Postgres gets $n placeholders and ON CONFLICT where
// SQLite uses ? and INSERT OR REPLACE.
func SeedFromJSON(db *sql.DB, dialect Dialect, jsonPath string) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed content: read %q: %w", jsonPath, err)
	}

	var seed ContentSeed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("seed content: parse json: %w", err)
	}

	for i, s := range seed.SpawnConfigs {
		kind := strings.TrimSpace(s.OwnerKind)
		if kind != "depot" && kind != "route" {
			return fmt.Errorf("seed content: spawn config at index %d: owner_kind must be depot or route, got %q", i+1, kind)
		}
		if len(s.HourlyRates) == 0 {
			return fmt.Errorf("seed content: spawn config %s/%d: hourly_rates must not be empty", kind, s.OwnerID)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed content: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	depotStmt, err := tx.Prepare(upsertStatement(dialect, "depots",
		[]string{"depot_id", "name", "lat", "lon", "capacity"},
		[]string{"depot_id"}))
	if err != nil {
		return fmt.Errorf("seed content: prepare depot insert: %w", err)
	}
	defer depotStmt.Close()

	for _, d := range seed.Depots {
		if _, err := depotStmt.Exec(d.DepotID, d.Name, d.Lat, d.Lon, d.Capacity); err != nil {
			return fmt.Errorf("seed content: insert depot_id=%d: %w", d.DepotID, err)
		}
	}

	routeStmt, err := tx.Prepare(upsertStatement(dialect, "routes",
		[]string{"route_id", "name", "polyline", "total_length_meters"},
		[]string{"route_id"}))
	if err != nil {
		return fmt.Errorf("seed content: prepare route insert: %w", err)
	}
	defer routeStmt.Close()

	for _, r := range seed.Routes {
		poly, err := json.Marshal(r.Polyline)
		if err != nil {
			return fmt.Errorf("seed content: encode polyline route_id=%d: %w", r.RouteID, err)
		}
		if _, err := routeStmt.Exec(r.RouteID, r.Name, string(poly), r.TotalLengthMeters); err != nil {
			return fmt.Errorf("seed content: insert route_id=%d: %w", r.RouteID, err)
		}
	}

	cfgStmt, err := tx.Prepare(upsertStatement(dialect, "spawn_configs",
		[]string{
			"owner_kind", "owner_id", "base_rate", "spatial_base",
			"hourly_rates", "day_multipliers",
			"building_weights", "poi_weights", "landuse_weights",
			"outbound_bias",
		},
		[]string{"owner_kind", "owner_id"}))
	if err != nil {
		return fmt.Errorf("seed content: prepare spawn config insert: %w", err)
	}
	defer cfgStmt.Close()

	for _, s := range seed.SpawnConfigs {
		cols, err := encodeSpawnConfigColumns(s)
		if err != nil {
			return fmt.Errorf("seed content: spawn config %s/%d: %w", s.OwnerKind, s.OwnerID, err)
		}
		if _, err := cfgStmt.Exec(
			s.OwnerKind, s.OwnerID, s.BaseRate, s.SpatialBase,
			cols.hourly, cols.days, cols.buildings, cols.pois, cols.landuse,
			s.OutboundBias,
		); err != nil {
			return fmt.Errorf("seed content: insert spawn config %s/%d: %w", s.OwnerKind, s.OwnerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed content: commit tx: %w", err)
	}

	return nil
}

// upsertStatement renders an insert-or-update for the table in the target
// dialect. SQLite replaces the whole row; Postgres keeps the row and
// updates the non-key columns on conflict.
func upsertStatement(d Dialect, table string, cols, keyCols []string) string {
	if d != DialectPostgres {
		placeholders := make([]string, len(cols))
		for i := range cols {
			placeholders[i] = "?"
		}
		return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s);",
			table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	keys := make(map[string]bool, len(keyCols))
	for _, k := range keyCols {
		keys[k] = true
	}
	assignments := make([]string, 0, len(cols))
	for _, c := range cols {
		if keys[c] {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s;",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
		strings.Join(keyCols, ", "), strings.Join(assignments, ", "))
}

type spawnConfigColumns struct {
	hourly, days, buildings, pois, landuse string
}

func encodeSpawnConfigColumns(s SpawnConfigSeed) (spawnConfigColumns, error) {
	var out spawnConfigColumns
	pairs := []struct {
		dst *string
		v   any
	}{
		{&out.hourly, s.HourlyRates},
		{&out.days, s.DayMultipliers},
		{&out.buildings, s.BuildingWeights},
		{&out.pois, s.POIWeights},
		{&out.landuse, s.LanduseWeights},
	}
	for _, p := range pairs {
		raw, err := json.Marshal(p.v)
		if err != nil {
			return out, fmt.Errorf("encode column: %w", err)
		}
		*p.dst = string(raw)
	}
	return out, nil
}
