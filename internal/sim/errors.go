package sim

import (
	"errors"
	"fmt"
)

// Recoverable and terminal conditions surfaced by the engine. Per-cycle
// and per-reservation failures wrap these sentinels and are counted, not
// propagated; only ErrAlreadyRunning and an exhausted driver retry budget
// are terminal for the caller.
var (
	ErrAlreadyRunning          = errors.New("coordinator already running")
	ErrDuplicateID             = errors.New("duplicate commuter id")
	ErrClaimConflict           = errors.New("reservation claim conflict")
	ErrCapacityExceeded        = errors.New("vehicle capacity exceeded")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrUnknownVehicle          = errors.New("unknown vehicle")
)

// ConfigError marks a malformed or incomplete spawn configuration.
// It is fatal to the affected cycle only.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("spawn config: %s: %s", e.Field, e.Reason)
}
