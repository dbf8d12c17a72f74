package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"commuter-sim-service/internal/adapters/cache"
	"commuter-sim-service/internal/adapters/content"
	"commuter-sim-service/internal/adapters/geospatial"
	"commuter-sim-service/internal/api"
	"commuter-sim-service/internal/config"
	"commuter-sim-service/internal/domain"
	"commuter-sim-service/internal/ports"
	"commuter-sim-service/internal/sim"
)

// main is the application composition root.
// It wires concrete adapters (SQLite, Overpass, Redis) behind ports,
// builds the spawn pipeline and fleet from the scenario file, and runs
// the HTTP server until interrupted.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	dbPath := config.Get("DB_PATH", "data/app.db")
	seedPath := config.Get("SEED_PATH", "data/seeds/content.json")
	scenarioPath := config.Get("SCENARIO_PATH", "data/scenario.yaml")
	port := config.Get("PORT", "8080")

	db, err := openDB(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Initialize schema and seed demo content on startup for local runs.
	if err := initAndSeed(db, seedPath); err != nil {
		log.Fatal(err)
	}

	scenario, err := config.LoadScenario(scenarioPath)
	if err != nil {
		log.Fatal(err)
	}

	store := content.NewSqliteContentStore(db)
	geo := newGeoProvider()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reservoir := sim.NewReservoir()
	coordinators, err := buildCoordinators(ctx, scenario, store, geo, reservoir)
	if err != nil {
		log.Fatal(err)
	}

	link := sim.NewChannelDriverLink(config.GetInt("DRIVER_LINK_CAPACITY", 64))
	go link.ConsumeAndLog(ctx)

	conductors, registries, err := buildFleet(ctx, scenario, store, reservoir, link)
	if err != nil {
		log.Fatal(err)
	}

	for _, c := range coordinators {
		if err := c.Start(); err != nil {
			log.Fatal(err)
		}
	}
	defer func() {
		for _, c := range coordinators {
			c.Stop()
		}
		for _, c := range conductors {
			if err := c.Shutdown(true, "service stopping"); err != nil {
				log.Printf("conductor shutdown: %v", err)
			}
		}
	}()

	var origins []string
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = strings.Split(raw, ",")
	}
	router := api.NewRouter(coordinators, reservoir, conductors, registries, origins)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("Server listening addr=:%s coordinators=%d vehicles=%d", port, len(coordinators), len(conductors))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return db, nil
}

func initAndSeed(db *sql.DB, seedPath string) error {
	if err := content.InitSchema(db); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := content.SeedFromJSON(db, content.DialectSQLite, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

// newGeoProvider selects the geospatial backend. Without an Overpass URL
// the service runs against a fixed mock, which keeps offline runs and
// demos deterministic.
func newGeoProvider() ports.GeoProvider {
	overpassURL := os.Getenv("OVERPASS_URL")
	if strings.TrimSpace(overpassURL) == "" {
		log.Println("OVERPASS_URL not set, using mock geo provider")
		return &geospatial.MockGeoProvider{BuildingCount: config.GetInt("MOCK_BUILDING_COUNT", 120)}
	}

	var featureCache ports.FeatureCache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		featureCache = cache.NewRedisFeatureCache(client, config.GetDuration("GEO_CACHE_TTL", 10*time.Minute))
		log.Printf("Geo cache enabled addr=%s", redisAddr)
	}

	return geospatial.NewOverpassGeoProvider(overpassURL, featureCache)
}

func buildCoordinators(
	ctx context.Context,
	scenario *config.Scenario,
	store ports.ContentStore,
	geo ports.GeoProvider,
	reservoir *sim.Reservoir,
) ([]*sim.SpawningCoordinator, error) {
	defaults := sim.SpawnDefaults{
		MaxWait:  scenario.MaxWait,
		Priority: scenario.Priority,
	}

	var coordinators []*sim.SpawningCoordinator

	for _, src := range scenario.DepotSources {
		depot, err := store.DepotByID(ctx, src.DepotID)
		if err != nil {
			return nil, fmt.Errorf("build coordinators: depot %d: %w", src.DepotID, err)
		}
		spawner := sim.NewDepotSpawner(store, geo, depot, src.RouteIDs, defaults, src.Seed)
		partition := sim.PartitionKey{Kind: sim.PartitionDepot, ID: depot.DepotID}
		sink := sim.ReservoirSink{Reservoir: reservoir, Partition: partition}
		name := fmt.Sprintf("depot-%d", depot.DepotID)
		coordinators = append(coordinators, sim.NewSpawningCoordinator(name, spawner, sink, reservoir, scenario.SpawnInterval))
	}

	for _, src := range scenario.RouteSources {
		route, err := store.RouteByID(ctx, src.RouteID)
		if err != nil {
			return nil, fmt.Errorf("build coordinators: route %d: %w", src.RouteID, err)
		}
		spawner := sim.NewRouteSpawner(store, geo, route, defaults, src.Seed)
		partition := sim.PartitionKey{Kind: sim.PartitionRoute, ID: route.RouteID}
		sink := sim.ReservoirSink{Reservoir: reservoir, Partition: partition}
		name := fmt.Sprintf("route-%d", route.RouteID)
		coordinators = append(coordinators, sim.NewSpawningCoordinator(name, spawner, sink, reservoir, scenario.SpawnInterval))
	}

	return coordinators, nil
}

// buildFleet creates one conductor per scenario vehicle and groups the
// vehicles into per-depot registries. Each conductor watches its depot
// partition plus its own route partition.
func buildFleet(
	ctx context.Context,
	scenario *config.Scenario,
	store ports.ContentStore,
	reservoir *sim.Reservoir,
	link ports.DriverLink,
) (map[int]*sim.Conductor, []*sim.DepotRegistry, error) {
	conductorCfg := sim.ConductorConfig{
		PickupRadiusMeters: scenario.PickupRadiusM,
		MinStopDuration:    scenario.MinStop,
		MaxStopDuration:    scenario.MaxStop,
		PerPassengerDwell:  scenario.PerPassenger,
	}

	conductors := make(map[int]*sim.Conductor, len(scenario.Fleet))
	registryByDepot := make(map[int]*sim.DepotRegistry)
	var registries []*sim.DepotRegistry

	for _, fv := range scenario.Fleet {
		registry, ok := registryByDepot[fv.DepotID]
		if !ok {
			depot, err := store.DepotByID(ctx, fv.DepotID)
			if err != nil {
				return nil, nil, fmt.Errorf("build fleet: depot %d: %w", fv.DepotID, err)
			}
			registry = sim.NewDepotRegistry(depot)
			registryByDepot[fv.DepotID] = registry
			registries = append(registries, registry)
		}

		vehicle := domain.NewVehicle(fv.VehicleID, fv.RouteID, fv.Capacity)
		if err := registry.AddVehicle(vehicle); err != nil {
			return nil, nil, fmt.Errorf("build fleet: vehicle %d: %w", fv.VehicleID, err)
		}

		partitions := []sim.PartitionKey{
			{Kind: sim.PartitionDepot, ID: fv.DepotID},
			{Kind: sim.PartitionRoute, ID: fv.RouteID},
		}
		conductors[fv.VehicleID] = sim.NewConductor(vehicle, reservoir, partitions, link, conductorCfg)
	}

	return conductors, registries, nil
}
