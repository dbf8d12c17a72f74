package domain

import (
	"time"

	"github.com/google/uuid"
)

// Travel direction along a route corridor.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Represents a single prospective passenger awaiting pickup.
// A CommuterReservation is created by a spawner, held by the reservoir,
// and consumed by at most one conductor. Boarding timestamps are populated
// only after a successful claim and consume.
type CommuterReservation struct {
	CommuterID         uuid.UUID
	Position           Coordinates
	Destination        *Coordinates
	Direction          Direction
	SpawnTime          time.Time
	Priority           float64
	MaxWait            time.Duration
	CompatibleRouteIDs []int
	BoardedAt          *time.Time
}

// Expired reports whether the reservation has waited past its limit.
func (c *CommuterReservation) Expired(now time.Time) bool {
	if c.MaxWait <= 0 {
		return false
	}
	return now.Sub(c.SpawnTime) > c.MaxWait
}

// WaitedFor returns how long the commuter has been waiting (never negative).
func (c *CommuterReservation) WaitedFor(now time.Time) time.Duration {
	d := now.Sub(c.SpawnTime)
	if d < 0 {
		return 0
	}
	return d
}

// CompatibleWith reports whether the commuter accepts the given route.
// An empty compatibility set means any route is acceptable.
func (c *CommuterReservation) CompatibleWith(routeID int) bool {
	if len(c.CompatibleRouteIDs) == 0 {
		return true
	}
	for _, id := range c.CompatibleRouteIDs {
		if id == routeID {
			return true
		}
	}
	return false
}

// MarkBoarded stamps the boarding time.
func (c *CommuterReservation) MarkBoarded(ts time.Time) {
	c.BoardedAt = &ts
}
