package sim

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"commuter-sim-service/internal/domain"
	"commuter-sim-service/internal/ports"
)

// Live boarding state for one vehicle.
type ConductorState string

const (
	ConductorIdle            ConductorState = "idle"
	ConductorApproachingStop ConductorState = "approaching_stop"
	ConductorStopped         ConductorState = "stopped"
	ConductorBoarding        ConductorState = "boarding"
	ConductorResuming        ConductorState = "resuming"
	ConductorUnavailable     ConductorState = "unavailable"
)

// Tunables for the matching and stop protocol.
type ConductorConfig struct {
	PickupRadiusMeters  float64
	MinStopDuration     time.Duration
	MaxStopDuration     time.Duration
	PerPassengerDwell   time.Duration
	SignalRetryAttempts int
	SignalRetryBackoff  time.Duration
}

func (c *ConductorConfig) applyDefaults() {
	if c.PickupRadiusMeters <= 0 {
		c.PickupRadiusMeters = 150
	}
	if c.MinStopDuration <= 0 {
		c.MinStopDuration = 2 * time.Second
	}
	if c.MaxStopDuration <= 0 {
		c.MaxStopDuration = 30 * time.Second
	}
	if c.PerPassengerDwell <= 0 {
		c.PerPassengerDwell = time.Second
	}
	if c.SignalRetryAttempts <= 0 {
		c.SignalRetryAttempts = 3
	}
	if c.SignalRetryBackoff <= 0 {
		c.SignalRetryBackoff = 200 * time.Millisecond
	}
}

// Conductor is the per-vehicle actor that matches reservoir commuters to
// remaining capacity, drives stop/depart signaling toward the driver, and
// round-trips the vehicle's GPS position across each stop. The driver is
// the sole authority for actual motion; the preserved position is advisory
// state the conductor is responsible for restoring verbatim.
type Conductor struct {
	vehicle    *domain.Vehicle
	reservoir  *Reservoir
	partitions []PartitionKey
	driver     ports.DriverLink
	cfg        ConductorConfig
	claimant   string

	mu           sync.Mutex
	state        ConductorState
	position     domain.Coordinates
	hasPosition  bool
	preservedGPS *domain.Coordinates

	// injected for deterministic tests
	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

func NewConductor(
	vehicle *domain.Vehicle,
	reservoir *Reservoir,
	partitions []PartitionKey,
	driver ports.DriverLink,
	cfg ConductorConfig,
) *Conductor {
	cfg.applyDefaults()
	return &Conductor{
		vehicle:    vehicle,
		reservoir:  reservoir,
		partitions: partitions,
		driver:     driver,
		cfg:        cfg,
		claimant:   fmt.Sprintf("vehicle-%d", vehicle.VehicleID),
		state:      ConductorIdle,
		now:        time.Now,
		wait:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Conductor) State() ConductorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conductor) Vehicle() *domain.Vehicle { return c.vehicle }

// Position returns the last reported vehicle position.
func (c *Conductor) Position() (domain.Coordinates, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position, c.hasPosition
}

// PreservedGPS returns the position captured at the current stop, if any.
func (c *Conductor) PreservedGPS() *domain.Coordinates {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preservedGPS == nil {
		return nil
	}
	p := *c.preservedGPS
	return &p
}

// PassengerCount reports current onboard passengers.
func (c *Conductor) PassengerCount() int {
	return c.vehicle.PassengersOnboard()
}

// BoardPassengers boards n passengers onto the vehicle. It refuses any
// request beyond remaining capacity and returns false; the count is never
// silently clamped.
func (c *Conductor) BoardPassengers(n int) bool {
	return c.vehicle.Board(n)
}

// UpdateVehiclePosition records GPS telemetry. Outside a stop cycle it
// also re-evaluates pickup matches and, on finding eligible commuters,
// runs the full stop/board/resume protocol before returning. During a
// stop cycle the update is telemetry only.
func (c *Conductor) UpdateVehiclePosition(ctx context.Context, lat, lon float64) error {
	c.mu.Lock()
	c.position = domain.Coordinates{Lat: lat, Lon: lon}
	c.hasPosition = true

	if c.state != ConductorIdle {
		c.mu.Unlock()
		return nil
	}

	matched := c.matchLocked()
	if len(matched) == 0 {
		c.mu.Unlock()
		return nil
	}
	c.state = ConductorApproachingStop
	c.mu.Unlock()

	return c.runStopCycle(ctx, matched, 0)
}

// ReceiveStopRequest handles an explicit disembark request from an
// onboard passenger: the same stop transition, with no boarding.
func (c *Conductor) ReceiveStopRequest(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.state != ConductorIdle {
		c.mu.Unlock()
		return fmt.Errorf("stop request for vehicle %d: conductor busy in state %q", c.vehicle.VehicleID, c.state)
	}
	if c.vehicle.PassengersOnboard() == 0 {
		c.mu.Unlock()
		return fmt.Errorf("stop request for vehicle %d: no passengers onboard", c.vehicle.VehicleID)
	}
	c.state = ConductorApproachingStop
	c.mu.Unlock()

	log.Printf("vehicle=%d stop_request reason=%q", c.vehicle.VehicleID, reason)
	return c.runStopCycle(ctx, nil, 1)
}

// Shutdown ends the conductor session. It refuses to interrupt an active
// stop cycle unless forced, in which case the session ends UNAVAILABLE
// with the given reason logged.
func (c *Conductor) Shutdown(force bool, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ConductorIdle && c.state != ConductorUnavailable {
		if !force {
			return fmt.Errorf("shutdown vehicle %d: conductor in state %q, wait for idle or force", c.vehicle.VehicleID, c.state)
		}
		log.Printf("vehicle=%d forced unavailable reason=%q", c.vehicle.VehicleID, reason)
	}
	c.state = ConductorUnavailable
	return nil
}

// matchLocked selects eligible commuters, oldest waiting first, up to the
// remaining capacity. Ordering by spawn time (never by distance) prevents
// spatial starvation of far-but-long-waiting commuters. Caller holds c.mu.
func (c *Conductor) matchLocked() []*domain.CommuterReservation {
	remaining := c.vehicle.RemainingCapacity()
	if remaining <= 0 || !c.hasPosition {
		return nil
	}

	now := c.now()
	pos := c.position

	var candidates []*domain.CommuterReservation
	for _, key := range c.partitions {
		candidates = append(candidates, c.reservoir.Query(key, now, func(res *domain.CommuterReservation) bool {
			if res.Direction != c.vehicle.Direction {
				return false
			}
			if !res.CompatibleWith(c.vehicle.RouteID) {
				return false
			}
			return domain.HaversineMeters(pos, res.Position) <= c.cfg.PickupRadiusMeters
		})...)
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].SpawnTime.Before(candidates[j].SpawnTime)
	})

	if len(candidates) > remaining {
		candidates = candidates[:remaining]
	}
	return candidates
}

// runStopCycle drives APPROACHING_STOP through RESUMING back to IDLE.
// Matched reservations are claimed and consumed during BOARDING; a
// reservation lost to another conductor in the meantime is skipped
// without error.
func (c *Conductor) runStopCycle(ctx context.Context, matched []*domain.CommuterReservation, alighting int) error {
	c.mu.Lock()
	preserved := c.position
	c.preservedGPS = &preserved
	c.state = ConductorStopped
	c.mu.Unlock()

	stopDuration := c.stopDurationFor(len(matched))

	stopSig := ports.DriverSignal{
		VehicleID:   c.vehicle.VehicleID,
		Action:      ports.ActionStopVehicle,
		Duration:    stopDuration.Milliseconds(),
		PreserveGPS: true,
		GPSPosition: preserved,
	}
	if err := c.signalWithRetry(ctx, stopSig); err != nil {
		// Fail safe: an unacknowledged stop never resumes motion.
		c.markUnavailable("stop signal undeliverable")
		return fmt.Errorf("vehicle %d: stop signal: %w", c.vehicle.VehicleID, err)
	}

	c.mu.Lock()
	c.state = ConductorBoarding
	boarded := 0
	now := c.now()
	for _, res := range matched {
		if c.reservoir.Claim(res.CommuterID, c.claimant, now) == nil {
			// Lost the race to another conductor; board fewer than matched.
			continue
		}
		if !c.vehicle.Board(1) {
			c.reservoir.Release(res.CommuterID)
			break
		}
		if err := c.reservoir.Consume(res.CommuterID, c.claimant); err != nil {
			c.vehicle.Alight(1)
			log.Printf("vehicle=%d consume failed commuter=%s: %v", c.vehicle.VehicleID, res.CommuterID, err)
			continue
		}
		res.MarkBoarded(now)
		boarded++
	}
	if alighting > 0 {
		c.vehicle.Alight(alighting)
	}
	c.mu.Unlock()

	if err := c.wait(ctx, stopDuration); err != nil {
		c.markUnavailable("stop wait cancelled")
		return fmt.Errorf("vehicle %d: stop wait: %w", c.vehicle.VehicleID, err)
	}

	c.mu.Lock()
	c.state = ConductorResuming
	c.mu.Unlock()

	resumeSig := ports.DriverSignal{
		VehicleID:   c.vehicle.VehicleID,
		Action:      ports.ActionContinueDriving,
		RestoreGPS:  true,
		GPSPosition: preserved,
	}
	if err := c.signalWithRetry(ctx, resumeSig); err != nil {
		c.markUnavailable("resume signal undeliverable")
		return fmt.Errorf("vehicle %d: resume signal: %w", c.vehicle.VehicleID, err)
	}

	c.mu.Lock()
	c.preservedGPS = nil
	c.state = ConductorIdle
	c.mu.Unlock()

	log.Printf("vehicle=%d stop_cycle boarded=%d alighted=%d dwell=%s", c.vehicle.VehicleID, boarded, alighting, stopDuration)
	return nil
}

func (c *Conductor) stopDurationFor(boardingCount int) time.Duration {
	d := time.Duration(boardingCount) * c.cfg.PerPassengerDwell
	if d < c.cfg.MinStopDuration {
		d = c.cfg.MinStopDuration
	}
	if d > c.cfg.MaxStopDuration {
		d = c.cfg.MaxStopDuration
	}
	return d
}

// signalWithRetry delivers a driver signal, retrying transient failures
// with linear backoff until the retry budget is exhausted. While a stop
// signal is unacknowledged the conductor stays STOPPED.
func (c *Conductor) signalWithRetry(ctx context.Context, sig ports.DriverSignal) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.SignalRetryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.driver.Send(ctx, sig); err == nil {
			return nil
		} else {
			lastErr = err
			log.Printf("vehicle=%d signal=%s attempt=%d failed: %v", c.vehicle.VehicleID, sig.Action, attempt, err)
		}
		if attempt < c.cfg.SignalRetryAttempts {
			if err := c.wait(ctx, c.cfg.SignalRetryBackoff); err != nil {
				return err
			}
		}
	}
	return lastErr
}

func (c *Conductor) markUnavailable(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ConductorUnavailable
	log.Printf("vehicle=%d conductor unavailable: %s", c.vehicle.VehicleID, reason)
}
