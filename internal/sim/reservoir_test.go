package sim

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"commuter-sim-service/internal/domain"
)

func newReservation(spawn time.Time, maxWait time.Duration) *domain.CommuterReservation {
	return &domain.CommuterReservation{
		CommuterID: uuid.New(),
		Position:   domain.Coordinates{Lat: 41.6938, Lon: -6.3507},
		Direction:  domain.DirectionOutbound,
		SpawnTime:  spawn,
		MaxWait:    maxWait,
	}
}

func TestReservoirInsertRejectsDuplicateID(t *testing.T) {
	r := NewReservoir()
	key := PartitionKey{Kind: PartitionDepot, ID: 1}
	res := newReservation(time.Now(), time.Hour)

	if err := r.Insert(key, res); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := r.Insert(key, res)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("second insert error = %v, want ErrDuplicateID", err)
	}

	sizes := r.PartitionSizes()
	if sizes[key] != 1 {
		t.Fatalf("partition size = %d, want 1", sizes[key])
	}
}

func TestReservoirQueryExcludesClaimedAndExpired(t *testing.T) {
	r := NewReservoir()
	key := PartitionKey{Kind: PartitionRoute, ID: 101}
	now := time.Now()

	fresh := newReservation(now.Add(-5*time.Minute), 30*time.Minute)
	stale := newReservation(now.Add(-31*time.Minute), 30*time.Minute)
	claimed := newReservation(now.Add(-5*time.Minute), 30*time.Minute)

	for _, res := range []*domain.CommuterReservation{fresh, stale, claimed} {
		if err := r.Insert(key, res); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if r.Claim(claimed.CommuterID, "vehicle-1", now) == nil {
		t.Fatalf("claim failed unexpectedly")
	}

	got := r.Query(key, now, nil)
	if len(got) != 1 || got[0].CommuterID != fresh.CommuterID {
		t.Fatalf("query returned %d reservations, want only the fresh one", len(got))
	}
}

func TestReservoirClaimIsExclusive(t *testing.T) {
	r := NewReservoir()
	key := PartitionKey{Kind: PartitionDepot, ID: 1}
	now := time.Now()
	res := newReservation(now, time.Hour)
	if err := r.Insert(key, res); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const claimants = 8
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if r.Claim(res.CommuterID, "vehicle", now) != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("claim won by %d claimants, want exactly 1", wins)
	}
}

func TestReservoirConsumeRequiresClaim(t *testing.T) {
	r := NewReservoir()
	key := PartitionKey{Kind: PartitionDepot, ID: 1}
	now := time.Now()
	res := newReservation(now, time.Hour)
	if err := r.Insert(key, res); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := r.Consume(res.CommuterID, "vehicle-1"); !errors.Is(err, ErrClaimConflict) {
		t.Fatalf("consume without claim error = %v, want ErrClaimConflict", err)
	}

	if r.Claim(res.CommuterID, "vehicle-1", now) == nil {
		t.Fatalf("claim failed")
	}
	if err := r.Consume(res.CommuterID, "vehicle-2"); !errors.Is(err, ErrClaimConflict) {
		t.Fatalf("consume by wrong claimant error = %v, want ErrClaimConflict", err)
	}
	if err := r.Consume(res.CommuterID, "vehicle-1"); err != nil {
		t.Fatalf("consume by claimant: %v", err)
	}

	if got := r.Query(key, now, nil); len(got) != 0 {
		t.Fatalf("consumed reservation still queryable")
	}
}

func TestReservoirReleaseReturnsToPool(t *testing.T) {
	r := NewReservoir()
	key := PartitionKey{Kind: PartitionRoute, ID: 101}
	now := time.Now()
	res := newReservation(now, time.Hour)
	if err := r.Insert(key, res); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if r.Claim(res.CommuterID, "vehicle-1", now) == nil {
		t.Fatalf("claim failed")
	}
	if r.Claim(res.CommuterID, "vehicle-2", now) != nil {
		t.Fatalf("double claim succeeded")
	}

	r.Release(res.CommuterID)
	if r.Claim(res.CommuterID, "vehicle-2", now) == nil {
		t.Fatalf("claim after release failed")
	}
}

func TestReservoirExpireOlderThan(t *testing.T) {
	r := NewReservoir()
	key := PartitionKey{Kind: PartitionDepot, ID: 1}
	now := time.Now()

	young := newReservation(now.Add(-10*time.Minute), 30*time.Minute)
	old := newReservation(now.Add(-45*time.Minute), 30*time.Minute)
	noLimit := newReservation(now.Add(-2*time.Hour), 0) // uses fallback
	claimedOld := newReservation(now.Add(-45*time.Minute), 30*time.Minute)

	for _, res := range []*domain.CommuterReservation{young, old, noLimit, claimedOld} {
		if err := r.Insert(key, res); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	// Claim before it can expire: Expired() would report true, so claim at
	// a time inside its window.
	if r.Claim(claimedOld.CommuterID, "vehicle-1", now.Add(-20*time.Minute)) == nil {
		t.Fatalf("claim failed")
	}

	removed := r.ExpireOlderThan(now, time.Hour)
	if removed != 2 {
		t.Fatalf("expired %d reservations, want 2 (old + fallback)", removed)
	}

	got := r.Query(key, now, nil)
	if len(got) != 1 || got[0].CommuterID != young.CommuterID {
		t.Fatalf("remaining available = %d, want only the young reservation", len(got))
	}
}
