package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"commuter-sim-service/internal/api/dto"
	"commuter-sim-service/internal/sim"
)

type CoordinatorHandler struct {
	Coordinators []*sim.SpawningCoordinator
}

// UpdateInterval retunes a running coordinator's spawn cadence. The new
// interval takes effect on the next cycle.
func (h *CoordinatorHandler) UpdateInterval(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var target *sim.SpawningCoordinator
	for _, c := range h.Coordinators {
		if c.Name() == name {
			target = c
			break
		}
	}
	if target == nil {
		writeError(w, r, http.StatusNotFound, "unknown coordinator")
		return
	}

	var req dto.IntervalRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	interval, err := time.ParseDuration(req.Interval)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid interval: "+err.Error())
		return
	}
	if err := target.UpdateSpawnInterval(interval); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{
		"coordinator": name,
		"interval":    interval.String(),
	})
}
