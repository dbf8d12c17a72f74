package sim

import (
	"context"
	"log"
	"sync"
	"time"

	"commuter-sim-service/internal/domain"
)

// Spawner computes one cycle's reservation batch for a spawn source.
type Spawner interface {
	Generate(ctx context.Context, now time.Time, window time.Duration) ([]*domain.CommuterReservation, error)
}

// ReservationSink receives generated reservations, one at a time so the
// coordinator can account for each insert independently.
type ReservationSink interface {
	Insert(res *domain.CommuterReservation) error
}

// ReservoirSink binds a reservoir partition as a coordinator sink.
type ReservoirSink struct {
	Reservoir *Reservoir
	Partition PartitionKey
}

func (s ReservoirSink) Insert(res *domain.CommuterReservation) error {
	return s.Reservoir.Insert(s.Partition, res)
}

// Snapshot of coordinator cadence and outcome counters. Queryable at any
// time without blocking the spawn loop.
type CoordinatorStats struct {
	Name          string
	Running       bool
	SpawnInterval time.Duration
	TimeWindow    time.Duration
	TotalSpawned  int64
	TotalFailed   int64
	TotalExpired  int64
	SuccessRate   float64
}

// SpawningCoordinator owns the generate-and-dispatch cycle for one spawn
// source. It is the only actor that runs on a timer: a spawn ticker drives
// generation and a slower, independent ticker drives reservation expiry.
//
// Failure policy: a failing generation step logs and yields zero spawns
// for that cycle; a failing insert increments the failure counter and
// never discards the rest of the batch. Neither terminates the loop.
type SpawningCoordinator struct {
	name      string
	spawner   Spawner
	sink      ReservationSink
	reservoir *Reservoir

	mu              sync.Mutex
	running         bool
	cancel          context.CancelFunc
	done            chan struct{}
	spawnInterval   time.Duration
	timeWindow      time.Duration
	cleanupInterval time.Duration
	cleanupTicker   *time.Ticker
	fallbackMaxWait time.Duration
	totalSpawned    int64
	totalFailed     int64
	totalExpired    int64
}

// cleanupFactor sets the expiry sweep cadence relative to the spawn
// interval. Sweeps follow interval updates at the same ratio.
const cleanupFactor = 5

func NewSpawningCoordinator(name string, spawner Spawner, sink ReservationSink, reservoir *Reservoir, spawnInterval time.Duration) *SpawningCoordinator {
	if spawnInterval <= 0 {
		spawnInterval = 30 * time.Second
	}
	return &SpawningCoordinator{
		name:            name,
		spawner:         spawner,
		sink:            sink,
		reservoir:       reservoir,
		spawnInterval:   spawnInterval,
		timeWindow:      spawnInterval,
		cleanupInterval: cleanupFactor * spawnInterval,
		fallbackMaxWait: 30 * time.Minute,
	}
}

// Start launches the background loop. Calling Start while the coordinator
// is already running fails with ErrAlreadyRunning.
func (c *SpawningCoordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.running = true

	go c.loop(ctx, done)
	return nil
}

// Stop cancels the loop and awaits its completion. After Stop returns no
// further cycle runs; calling Stop on a stopped coordinator is a no-op.
func (c *SpawningCoordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	<-done
}

func (c *SpawningCoordinator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	spawnTicker := time.NewTicker(c.interval())
	defer spawnTicker.Stop()

	// Created and registered under the lock so interval updates always
	// see the live ticker.
	c.mu.Lock()
	cleanupTicker := time.NewTicker(c.cleanupInterval)
	c.cleanupTicker = cleanupTicker
	c.mu.Unlock()
	defer cleanupTicker.Stop()
	defer func() {
		c.mu.Lock()
		c.cleanupTicker = nil
		c.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-spawnTicker.C:
			c.GenerateAndProcess(ctx, time.Now())
			// Interval updates take effect here, never mid-cycle.
			spawnTicker.Reset(c.interval())
		case <-cleanupTicker.C:
			expired := c.reservoir.ExpireOlderThan(time.Now(), c.fallback())
			if expired > 0 {
				c.mu.Lock()
				c.totalExpired += int64(expired)
				c.mu.Unlock()
				log.Printf("coordinator=%s expired=%d", c.name, expired)
			}
		}
	}
}

// GenerateAndProcess runs one spawn cycle at the given time. Success and
// failure are counted per reservation so one failing insert does not
// discard the rest of the batch.
func (c *SpawningCoordinator) GenerateAndProcess(ctx context.Context, now time.Time) {
	batch, err := c.spawner.Generate(ctx, now, c.window())
	if err != nil {
		// Recoverable: this cycle yields zero spawns, the next runs anyway.
		log.Printf("coordinator=%s spawn cycle failed: %v", c.name, err)
		return
	}

	var ok, failed int64
	for _, res := range batch {
		if err := c.sink.Insert(res); err != nil {
			failed++
			log.Printf("coordinator=%s insert failed commuter=%s: %v", c.name, res.CommuterID, err)
			continue
		}
		ok++
	}

	c.mu.Lock()
	c.totalSpawned += ok
	c.totalFailed += failed
	c.mu.Unlock()
}

// UpdateSpawnInterval changes the cycle cadence from the next cycle on.
// The expiry sweep follows at cleanupFactor times the new interval.
func (c *SpawningCoordinator) UpdateSpawnInterval(d time.Duration) error {
	if d <= 0 {
		return &ConfigError{Field: "spawn_interval", Reason: "must be positive"}
	}
	c.mu.Lock()
	c.spawnInterval = d
	c.cleanupInterval = cleanupFactor * d
	if c.cleanupTicker != nil {
		c.cleanupTicker.Reset(c.cleanupInterval)
	}
	c.mu.Unlock()
	return nil
}

// UpdateTimeWindow changes the generation window from the next cycle on.
func (c *SpawningCoordinator) UpdateTimeWindow(d time.Duration) error {
	if d <= 0 {
		return &ConfigError{Field: "time_window", Reason: "must be positive"}
	}
	c.mu.Lock()
	c.timeWindow = d
	c.mu.Unlock()
	return nil
}

func (c *SpawningCoordinator) Name() string { return c.name }

// Stats returns a point-in-time snapshot of the coordinator counters.
func (c *SpawningCoordinator) Stats() CoordinatorStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.totalSpawned + c.totalFailed
	rate := 1.0
	if total > 0 {
		rate = float64(c.totalSpawned) / float64(total)
	}
	return CoordinatorStats{
		Name:          c.name,
		Running:       c.running,
		SpawnInterval: c.spawnInterval,
		TimeWindow:    c.timeWindow,
		TotalSpawned:  c.totalSpawned,
		TotalFailed:   c.totalFailed,
		TotalExpired:  c.totalExpired,
		SuccessRate:   rate,
	}
}

func (c *SpawningCoordinator) interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spawnInterval
}

func (c *SpawningCoordinator) window() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeWindow
}

func (c *SpawningCoordinator) cleanup() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleanupInterval
}

func (c *SpawningCoordinator) fallback() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fallbackMaxWait
}
