package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"commuter-sim-service/internal/api/dto"
	"commuter-sim-service/internal/sim"
)

// pickupTimeout bounds one full stop cycle triggered over HTTP.
const pickupTimeout = 2 * time.Minute

type VehicleHandler struct {
	Conductors map[int]*sim.Conductor
	Registries []*sim.DepotRegistry
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	res := dto.ListVehiclesResponse{Vehicles: make([]dto.VehicleResponse, 0, 16)}
	for _, reg := range h.Registries {
		for _, v := range reg.Vehicles() {
			res.Vehicles = append(res.Vehicles, dto.VehicleResponse{
				VehicleID:         v.VehicleID,
				RouteID:           v.RouteID,
				Capacity:          v.Capacity,
				State:             string(v.State()),
				Direction:         string(v.Direction),
				PassengersOnboard: v.PassengersOnboard(),
				PickupCount:       v.PickupCount(),
			})
		}
	}
	sort.Slice(res.Vehicles, func(i, j int) bool {
		return res.Vehicles[i].VehicleID < res.Vehicles[j].VehicleID
	})
	writeJSON(w, r, http.StatusOK, res)
}

// Position accepts a GPS report for a vehicle. A report can start a pickup
// cycle, which blocks for the whole stop duration, so it is accepted and run
// off the request goroutine.
func (h *VehicleHandler) Position(w http.ResponseWriter, r *http.Request) {
	conductor, ok := h.conductorFromPath(w, r)
	if !ok {
		return
	}

	var req dto.PositionRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		writeError(w, r, http.StatusBadRequest, "coordinates out of range")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pickupTimeout)
		defer cancel()
		if err := conductor.UpdateVehiclePosition(ctx, req.Lat, req.Lon); err != nil {
			log.Printf("position update: vehicle=%d err=%v", conductor.Vehicle().VehicleID, err)
		}
	}()

	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// StopRequest forces an alight-only stop (an onboard passenger requested
// their destination). Runs off the request goroutine like Position.
func (h *VehicleHandler) StopRequest(w http.ResponseWriter, r *http.Request) {
	conductor, ok := h.conductorFromPath(w, r)
	if !ok {
		return
	}

	var req dto.StopRequestBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pickupTimeout)
		defer cancel()
		if err := conductor.ReceiveStopRequest(ctx, req.Reason); err != nil {
			log.Printf("stop request: vehicle=%d err=%v", conductor.Vehicle().VehicleID, err)
		}
	}()

	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (h *VehicleHandler) conductorFromPath(w http.ResponseWriter, r *http.Request) (*sim.Conductor, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid vehicle id")
		return nil, false
	}
	conductor, ok := h.Conductors[id]
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown vehicle")
		return nil, false
	}
	return conductor, true
}
