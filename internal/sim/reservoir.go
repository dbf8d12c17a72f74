package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"commuter-sim-service/internal/domain"
)

// Reservoir partition kinds. Depot partitions hold commuters waiting
// physically at a depot (outbound only); route partitions hold commuters
// appearing along a corridor in either direction.
type PartitionKind string

const (
	PartitionDepot PartitionKind = "depot"
	PartitionRoute PartitionKind = "route"
)

// PartitionKey identifies one ownership boundary for reservations.
type PartitionKey struct {
	Kind PartitionKind
	ID   int
}

func (k PartitionKey) String() string { return fmt.Sprintf("%s/%d", k.Kind, k.ID) }

type reservationStatus int

const (
	statusAvailable reservationStatus = iota
	statusClaimed
)

type reservationEntry struct {
	res       *domain.CommuterReservation
	partition PartitionKey
	status    reservationStatus
	claimant  string
}

// Reservoir is the canonical store of pending commuter reservations,
// partitioned by kind and depot/route identity. It is the only structure
// mutated by more than one actor kind (spawners insert, conductors
// claim/consume, the coordinator expires), so every mutating call is a
// single mutex-held critical section with no blocking inside it. Claim is
// the sole synchronization point preventing two conductors from boarding
// the same commuter.
type Reservoir struct {
	mu          sync.Mutex
	byID        map[uuid.UUID]*reservationEntry
	byPartition map[PartitionKey]map[uuid.UUID]*reservationEntry
}

func NewReservoir() *Reservoir {
	return &Reservoir{
		byID:        make(map[uuid.UUID]*reservationEntry),
		byPartition: make(map[PartitionKey]map[uuid.UUID]*reservationEntry),
	}
}

// Insert adds a reservation to its partition. A colliding commuter id
// fails with ErrDuplicateID; the reservation is dropped by the caller.
func (r *Reservoir) Insert(key PartitionKey, res *domain.CommuterReservation) error {
	if res == nil {
		return fmt.Errorf("reservoir insert: nil reservation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[res.CommuterID]; ok {
		return fmt.Errorf("reservoir insert: commuter %s: %w", res.CommuterID, ErrDuplicateID)
	}

	e := &reservationEntry{res: res, partition: key, status: statusAvailable}
	r.byID[res.CommuterID] = e

	part, ok := r.byPartition[key]
	if !ok {
		part = make(map[uuid.UUID]*reservationEntry)
		r.byPartition[key] = part
	}
	part[res.CommuterID] = e

	return nil
}

// Query returns a read-only snapshot of the available reservations in a
// partition that pass the filter. Claimed and expired reservations are
// never visible; querying does not reserve anything. A nil filter matches
// everything.
func (r *Reservoir) Query(key PartitionKey, now time.Time, filter func(*domain.CommuterReservation) bool) []*domain.CommuterReservation {
	r.mu.Lock()
	defer r.mu.Unlock()

	part := r.byPartition[key]
	out := make([]*domain.CommuterReservation, 0, len(part))
	for _, e := range part {
		if e.status != statusAvailable {
			continue
		}
		if e.res.Expired(now) {
			continue
		}
		if filter != nil && !filter(e.res) {
			continue
		}
		out = append(out, e.res)
	}
	return out
}

// Claim atomically marks a reservation as claimed by claimant. It returns
// nil when the reservation is already claimed, expired, or absent; losing
// a race here is the expected ClaimConflict outcome, not an error.
func (r *Reservoir) Claim(id uuid.UUID, claimant string, now time.Time) *domain.CommuterReservation {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || e.status != statusAvailable || e.res.Expired(now) {
		return nil
	}
	e.status = statusClaimed
	e.claimant = claimant
	return e.res
}

// Release returns a claimed-but-unboarded reservation to the pool, used
// when a claimed match falls through.
func (r *Reservoir) Release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byID[id]; ok && e.status == statusClaimed {
		e.status = statusAvailable
		e.claimant = ""
	}
}

// Consume permanently removes a reservation previously claimed by
// claimant, completing a boarding. It fails with ErrClaimConflict if the
// claim is not held.
func (r *Reservoir) Consume(id uuid.UUID, claimant string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || e.status != statusClaimed || e.claimant != claimant {
		return fmt.Errorf("reservoir consume: commuter %s claimant %q: %w", id, claimant, ErrClaimConflict)
	}
	r.remove(e)
	return nil
}

// ExpireOlderThan removes available reservations whose age exceeds their
// own max wait, or fallbackMaxWait when a reservation carries none.
// Claimed reservations are exempt until released. Returns the number
// removed.
func (r *Reservoir) ExpireOlderThan(now time.Time, fallbackMaxWait time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, e := range r.byID {
		if e.status != statusAvailable {
			continue
		}
		limit := e.res.MaxWait
		if limit <= 0 {
			limit = fallbackMaxWait
		}
		if limit > 0 && e.res.WaitedFor(now) > limit {
			r.remove(e)
			removed++
		}
	}
	return removed
}

// PartitionSizes reports available reservation counts per partition.
func (r *Reservoir) PartitionSizes() map[PartitionKey]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[PartitionKey]int, len(r.byPartition))
	for key, part := range r.byPartition {
		n := 0
		for _, e := range part {
			if e.status == statusAvailable {
				n++
			}
		}
		out[key] = n
	}
	return out
}

// caller holds r.mu
func (r *Reservoir) remove(e *reservationEntry) {
	delete(r.byID, e.res.CommuterID)
	if part, ok := r.byPartition[e.partition]; ok {
		delete(part, e.res.CommuterID)
		if len(part) == 0 {
			delete(r.byPartition, e.partition)
		}
	}
}
