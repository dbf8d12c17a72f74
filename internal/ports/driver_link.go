package ports

import (
	"context"

	"commuter-sim-service/internal/domain"
)

// Actions a conductor may request from the driver.
type DriverAction string

const (
	ActionStopVehicle     DriverAction = "stop_vehicle"
	ActionContinueDriving DriverAction = "continue_driving"
)

// DriverSignal is one message from a conductor to its driver. The two
// shapes are stop_vehicle (Duration + PreserveGPS) and continue_driving
// (RestoreGPS); GPSPosition carries the preserved position in both.
type DriverSignal struct {
	VehicleID   int
	Action      DriverAction
	Duration    int64 // stop duration in milliseconds, stop_vehicle only
	PreserveGPS bool
	RestoreGPS  bool
	GPSPosition domain.Coordinates
}

// Contract for delivering driver signals. Send returns once the signal is
// accepted for delivery; an error means the signal was not delivered and
// the conductor must not assume the vehicle changed state.
type DriverLink interface {
	Send(ctx context.Context, sig DriverSignal) error
}
