package sim

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"commuter-sim-service/internal/domain"
)

// DepotRegistry owns vehicle creation, departure scheduling, and the
// registry backing the fleet. Vehicle trip states advance monotonically;
// returning/idle are set externally on loop completion, never by a
// conductor.
type DepotRegistry struct {
	mu       sync.Mutex
	depot    *domain.Depot
	vehicles map[int]*domain.Vehicle
}

func NewDepotRegistry(depot *domain.Depot) *DepotRegistry {
	return &DepotRegistry{
		depot:    depot,
		vehicles: make(map[int]*domain.Vehicle),
	}
}

// AddVehicle registers a newly created vehicle with the depot. A depot
// with a positive capacity refuses vehicles beyond it.
func (d *DepotRegistry) AddVehicle(v *domain.Vehicle) error {
	if v == nil {
		return fmt.Errorf("depot %d: add vehicle: nil vehicle", d.depot.DepotID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.vehicles[v.VehicleID]; ok {
		return fmt.Errorf("depot %d: add vehicle: vehicle %d already registered", d.depot.DepotID, v.VehicleID)
	}
	if d.depot.Capacity > 0 && len(d.vehicles) >= d.depot.Capacity {
		return fmt.Errorf("depot %d: add vehicle %d: %w", d.depot.DepotID, v.VehicleID, ErrCapacityExceeded)
	}
	d.vehicles[v.VehicleID] = v
	return nil
}

// Vehicle looks up a registered vehicle.
func (d *DepotRegistry) Vehicle(vehicleID int) (*domain.Vehicle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.vehicles[vehicleID]
	return v, ok
}

// Vehicles returns the registered fleet ordered by vehicle id.
func (d *DepotRegistry) Vehicles() []*domain.Vehicle {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]*domain.Vehicle, 0, len(d.vehicles))
	for _, v := range d.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

// ScheduleDeparture sets a departure time for a known vehicle. An unknown
// vehicle id fails with ErrUnknownVehicle.
func (d *DepotRegistry) ScheduleDeparture(vehicleID int, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("depot %d: schedule departure: vehicle %d: %w", d.depot.DepotID, vehicleID, ErrUnknownVehicle)
	}
	return v.Schedule(at)
}

// Departures lists scheduled vehicles departing within [from, from+window),
// soonest first.
func (d *DepotRegistry) Departures(from time.Time, window time.Duration) []*domain.Vehicle {
	d.mu.Lock()
	defer d.mu.Unlock()

	until := from.Add(window)
	type departure struct {
		v  *domain.Vehicle
		at time.Time
	}
	slots := make([]departure, 0, len(d.vehicles))
	for _, v := range d.vehicles {
		if v.State() != domain.VehicleScheduled {
			continue
		}
		t := v.DepartureTime()
		if t == nil {
			continue
		}
		if !t.Before(from) && t.Before(until) {
			slots = append(slots, departure{v: v, at: *t})
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].at.Before(slots[j].at) })

	out := make([]*domain.Vehicle, len(slots))
	for i, s := range slots {
		out[i] = s.v
	}
	return out
}

// MarkDeparted advances a scheduled vehicle to departed.
func (d *DepotRegistry) MarkDeparted(vehicleID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("depot %d: mark departed: vehicle %d: %w", d.depot.DepotID, vehicleID, ErrUnknownVehicle)
	}
	return v.Depart()
}
