package handlers

import (
	"net/http"
	"sort"

	"commuter-sim-service/internal/api/dto"
	"commuter-sim-service/internal/sim"
)

type StatsHandler struct {
	Coordinators []*sim.SpawningCoordinator
	Reservoir    *sim.Reservoir
	Conductors   map[int]*sim.Conductor
}

// Snapshot reports coordinator counters, reservoir partition sizes, and
// live conductor sessions. Statistics are the primary signal of partial
// failure; reading them never blocks the spawn loops.
func (h *StatsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	res := dto.StatsResponse{
		Coordinators: make([]dto.CoordinatorStatsResponse, 0, len(h.Coordinators)),
		Reservoir:    make([]dto.PartitionSizeResponse, 0, 8),
		Conductors:   make([]dto.ConductorSessionResponse, 0, len(h.Conductors)),
	}

	for _, c := range h.Coordinators {
		s := c.Stats()
		res.Coordinators = append(res.Coordinators, dto.CoordinatorStatsResponse{
			Name:          s.Name,
			Running:       s.Running,
			SpawnInterval: s.SpawnInterval.String(),
			TimeWindow:    s.TimeWindow.String(),
			TotalSpawned:  s.TotalSpawned,
			TotalFailed:   s.TotalFailed,
			TotalExpired:  s.TotalExpired,
			SuccessRate:   s.SuccessRate,
		})
	}

	for key, n := range h.Reservoir.PartitionSizes() {
		res.Reservoir = append(res.Reservoir, dto.PartitionSizeResponse{
			Partition: key.String(),
			Pending:   n,
		})
	}
	sort.Slice(res.Reservoir, func(i, j int) bool {
		return res.Reservoir[i].Partition < res.Reservoir[j].Partition
	})

	for _, c := range h.Conductors {
		v := c.Vehicle()
		session := dto.ConductorSessionResponse{
			VehicleID:      v.VehicleID,
			State:          string(c.State()),
			PassengerCount: c.PassengerCount(),
			Capacity:       v.Capacity,
		}
		if pos, ok := c.Position(); ok {
			session.Position = &dto.LatLon{Lat: pos.Lat, Lon: pos.Lon}
		}
		if gps := c.PreservedGPS(); gps != nil {
			session.PreservedGPS = &dto.LatLon{Lat: gps.Lat, Lon: gps.Lon}
		}
		res.Conductors = append(res.Conductors, session)
	}
	sort.Slice(res.Conductors, func(i, j int) bool {
		return res.Conductors[i].VehicleID < res.Conductors[j].VehicleID
	})

	writeJSON(w, r, http.StatusOK, res)
}
