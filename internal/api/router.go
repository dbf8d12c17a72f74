package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"commuter-sim-service/internal/api/handlers"
	"commuter-sim-service/internal/sim"
)

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root (handlers stay unaware
// of concrete adapters).
func NewRouter(
	coordinators []*sim.SpawningCoordinator,
	reservoir *sim.Reservoir,
	conductors map[int]*sim.Conductor,
	registries []*sim.DepotRegistry,
	allowedOrigins []string,
) http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}

	statsHandler := &handlers.StatsHandler{
		Coordinators: coordinators,
		Reservoir:    reservoir,
		Conductors:   conductors,
	}
	vehicleHandler := &handlers.VehicleHandler{
		Conductors: conductors,
		Registries: registries,
	}
	coordinatorHandler := &handlers.CoordinatorHandler{
		Coordinators: coordinators,
	}

	r.Get("/health", handlers.Health)
	r.Get("/stats", statsHandler.Snapshot)
	r.Get("/vehicles", vehicleHandler.List)
	r.Post("/vehicles/{id}/position", vehicleHandler.Position)
	r.Post("/vehicles/{id}/stop-request", vehicleHandler.StopRequest)
	r.Post("/coordinators/{name}/interval", coordinatorHandler.UpdateInterval)

	return r
}
