package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario describes one simulation run: which depots and routes spawn
// commuters, the fleet serving them, and the protocol tunables. Loaded
// once at startup; content records themselves live in the content store.
type Scenario struct {
	SpawnInterval  time.Duration   `yaml:"spawn_interval"`
	MaxWait        time.Duration   `yaml:"max_wait"`
	Priority       float64         `yaml:"priority"`
	PickupRadiusM  float64         `yaml:"pickup_radius_meters"`
	MinStop        time.Duration   `yaml:"min_stop"`
	MaxStop        time.Duration   `yaml:"max_stop"`
	PerPassenger   time.Duration   `yaml:"per_passenger_dwell"`
	DepotSources   []DepotSource   `yaml:"depot_sources"`
	RouteSources   []RouteSource   `yaml:"route_sources"`
	Fleet          []FleetVehicle  `yaml:"fleet"`
}

type DepotSource struct {
	DepotID  int   `yaml:"depot_id"`
	RouteIDs []int `yaml:"route_ids"`
	Seed     int64 `yaml:"seed"`
}

type RouteSource struct {
	RouteID int   `yaml:"route_id"`
	Seed    int64 `yaml:"seed"`
}

type FleetVehicle struct {
	VehicleID int `yaml:"vehicle_id"`
	RouteID   int `yaml:"route_id"`
	DepotID   int `yaml:"depot_id"`
	Capacity  int `yaml:"capacity"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	if sc.SpawnInterval <= 0 {
		sc.SpawnInterval = 30 * time.Second
	}
	if sc.MaxWait <= 0 {
		sc.MaxWait = 30 * time.Minute
	}
	for i, v := range sc.Fleet {
		if v.Capacity <= 0 {
			return nil, fmt.Errorf("scenario fleet entry %d: capacity must be positive", i+1)
		}
	}

	return &sc, nil
}
