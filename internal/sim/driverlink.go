package sim

import (
	"context"
	"fmt"
	"log"

	"commuter-sim-service/internal/ports"
)

// ChannelDriverLink carries conductor-to-driver signals over a bounded
// channel. Backpressure is expressed by the channel capacity: when the
// consumer falls behind, Send blocks until there is room or the context
// ends, and a cancelled send reports delivery failure to the conductor.
type ChannelDriverLink struct {
	ch chan ports.DriverSignal
}

func NewChannelDriverLink(capacity int) *ChannelDriverLink {
	if capacity <= 0 {
		capacity = 64
	}
	return &ChannelDriverLink{ch: make(chan ports.DriverSignal, capacity)}
}

func (l *ChannelDriverLink) Send(ctx context.Context, sig ports.DriverSignal) error {
	select {
	case l.ch <- sig:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("driver link: send %s for vehicle %d: %w", sig.Action, sig.VehicleID, ctx.Err())
	}
}

// Signals exposes the consumer side of the link.
func (l *ChannelDriverLink) Signals() <-chan ports.DriverSignal { return l.ch }

// ConsumeAndLog drains the link until the context ends, logging each
// signal. This is the default driver-side collaborator for runs without
// real vehicle hardware attached.
func (l *ChannelDriverLink) ConsumeAndLog(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-l.ch:
			log.Printf(
				"driver signal vehicle=%d action=%s duration_ms=%d preserve_gps=%t restore_gps=%t lat=%.6f lon=%.6f",
				sig.VehicleID, sig.Action, sig.Duration, sig.PreserveGPS, sig.RestoreGPS,
				sig.GPSPosition.Lat, sig.GPSPosition.Lon,
			)
		}
	}
}
