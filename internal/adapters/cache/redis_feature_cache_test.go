package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"commuter-sim-service/internal/domain"
	"commuter-sim-service/internal/ports"
)

func newTestCache(t *testing.T) (*RedisFeatureCache, *miniredis.Miniredis) {
	t.Helper()

	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisFeatureCache(client, time.Minute), srv
}

func TestRedisFeatureCacheCountRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if _, ok, err := c.GetCount(ctx, "count:41.69380:-6.35070:500"); err != nil || ok {
		t.Fatalf("cold read: ok=%v err=%v, want miss without error", ok, err)
	}

	if err := c.PutCount(ctx, "count:41.69380:-6.35070:500", 120); err != nil {
		t.Fatalf("put: %v", err)
	}

	n, ok, err := c.GetCount(ctx, "count:41.69380:-6.35070:500")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || n != 120 {
		t.Fatalf("got n=%d ok=%v, want 120 hit", n, ok)
	}
}

func TestRedisFeatureCacheFeaturesRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	features := []ports.Feature{
		{Category: ports.FeatureCategoryBuilding, Type: "apartments", Position: domain.Coordinates{Lat: 41.6971, Lon: -6.3442}},
		{Category: ports.FeatureCategoryPOI, Type: "school", Position: domain.Coordinates{Lat: 41.7004, Lon: -6.3388}},
	}

	if err := c.PutFeatures(ctx, "route:101", features); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := c.GetFeatures(ctx, "route:101")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || len(got) != 2 {
		t.Fatalf("got %d features ok=%v, want 2 hit", len(got), ok)
	}
	if got[0] != features[0] || got[1] != features[1] {
		t.Fatalf("features mutated through cache: %+v", got)
	}
}

func TestRedisFeatureCacheEntriesExpire(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	if err := c.PutCount(ctx, "count:x", 5); err != nil {
		t.Fatalf("put: %v", err)
	}

	srv.FastForward(2 * time.Minute)

	if _, ok, err := c.GetCount(ctx, "count:x"); err != nil || ok {
		t.Fatalf("expired entry: ok=%v err=%v, want miss", ok, err)
	}
}
