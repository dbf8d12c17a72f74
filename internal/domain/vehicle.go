package domain

import (
	"fmt"
	"sync"
	"time"
)

// Lifecycle state of a vehicle across one trip.
type VehicleState string

const (
	VehicleCreated   VehicleState = "created"
	VehicleScheduled VehicleState = "scheduled"
	VehicleDeparted  VehicleState = "departed"
	VehicleReturning VehicleState = "returning"
	VehicleIdle      VehicleState = "idle"
)

// Vehicle is a physical unit operating on one route. Identity fields are
// fixed at creation; trip state is guarded by an internal mutex because a
// depot registry and a conductor mutate the same vehicle from different
// goroutines. Trip states advance monotonically
// (created -> scheduled -> departed); returning/idle are reached only
// after a completed loop.
type Vehicle struct {
	VehicleID int
	RouteID   int
	Capacity  int
	Direction Direction

	mu                sync.Mutex
	state             VehicleState
	departureTime     *time.Time
	passengersOnboard int
	pickupCount       int
}

func NewVehicle(id, routeID, capacity int) *Vehicle {
	return &Vehicle{
		VehicleID: id,
		RouteID:   routeID,
		Capacity:  capacity,
		Direction: DirectionOutbound,
		state:     VehicleCreated,
	}
}

func (v *Vehicle) State() VehicleState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// DepartureTime returns a copy of the scheduled departure, or nil when
// the vehicle has none.
func (v *Vehicle) DepartureTime() *time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.departureTime == nil {
		return nil
	}
	t := *v.departureTime
	return &t
}

func (v *Vehicle) PassengersOnboard() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.passengersOnboard
}

func (v *Vehicle) PickupCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pickupCount
}

// RemainingCapacity returns how many more passengers can board.
func (v *Vehicle) RemainingCapacity() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	rem := v.Capacity - v.passengersOnboard
	if rem < 0 {
		return 0
	}
	return rem
}

// Board attempts to board n passengers. It returns false, leaving the
// count unchanged, when the request exceeds remaining capacity. Callers
// must check the return value; there is no silent clamp.
func (v *Vehicle) Board(n int) bool {
	if n <= 0 {
		return n == 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.passengersOnboard+n > v.Capacity {
		return false
	}
	v.passengersOnboard += n
	v.pickupCount += n
	return true
}

// Alight disembarks up to n passengers and returns how many actually left.
func (v *Vehicle) Alight(n int) int {
	if n <= 0 {
		return 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if n > v.passengersOnboard {
		n = v.passengersOnboard
	}
	v.passengersOnboard -= n
	return n
}

// Schedule moves a created vehicle to scheduled with a departure time.
func (v *Vehicle) Schedule(at time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != VehicleCreated && v.state != VehicleIdle {
		return fmt.Errorf("schedule vehicle %d: cannot schedule from state %q", v.VehicleID, v.state)
	}
	t := at
	v.departureTime = &t
	v.state = VehicleScheduled
	return nil
}

// Depart moves a scheduled vehicle to departed.
func (v *Vehicle) Depart() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != VehicleScheduled {
		return fmt.Errorf("depart vehicle %d: cannot depart from state %q", v.VehicleID, v.state)
	}
	v.state = VehicleDeparted
	return nil
}

// CompleteLoop marks the end of a trip. Returning first, idle once parked.
func (v *Vehicle) CompleteLoop(parked bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != VehicleDeparted && v.state != VehicleReturning {
		return fmt.Errorf("complete loop vehicle %d: cannot complete from state %q", v.VehicleID, v.state)
	}
	if parked {
		v.state = VehicleIdle
	} else {
		v.state = VehicleReturning
	}
	return nil
}
