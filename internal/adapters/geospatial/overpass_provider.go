package geospatial

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"commuter-sim-service/internal/domain"
	"commuter-sim-service/internal/platform/obs"
	"commuter-sim-service/internal/ports"
)

// OverpassGeoProvider implements GeoProvider against an Overpass-style
// OpenStreetMap query API.
//
// It coordinates:
//   - Query construction for around-point and around-polyline lookups
//   - Per-cycle result caching through an optional FeatureCache
//   - External API calls with retry/backoff
//
// The provider is safe for concurrent use.
type OverpassGeoProvider struct {
	session *http.Client
	baseURL string
	cache   ports.FeatureCache
}

func NewOverpassGeoProvider(baseURL string, cache ports.FeatureCache) *OverpassGeoProvider {
	if baseURL == "" {
		baseURL = "https://overpass-api.de"
	}
	return &OverpassGeoProvider{
		session: &http.Client{Timeout: 25 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache,
	}
}

type overpassElement struct {
	Type   string            `json:"type"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// CountBuildingsNear counts buildings within radiusMeters of a point.
func (o *OverpassGeoProvider) CountBuildingsNear(
	ctx context.Context,
	center domain.Coordinates,
	radiusMeters float64,
) (_ int, err error) {
	defer obs.Time(ctx, "geo.CountBuildingsNear")(&err)

	key := fmt.Sprintf("count:%.5f:%.5f:%.0f", center.Lat, center.Lon, radiusMeters)
	if o.cache != nil {
		if n, ok, cerr := o.cache.GetCount(ctx, key); cerr != nil {
			log.Printf("geo cache get failed key=%s: %v", key, cerr)
		} else if ok {
			return n, nil
		}
	}

	query := fmt.Sprintf(
		`[out:json][timeout:20];way["building"](around:%.0f,%.6f,%.6f);out count;`,
		radiusMeters, center.Lat, center.Lon,
	)

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, query)
	})
	if err != nil {
		return 0, fmt.Errorf("count buildings near (%.5f, %.5f): %w", center.Lat, center.Lon, err)
	}
	defer resp.Body.Close()

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("count buildings: decode response: %w", err)
	}

	count := 0
	for _, el := range parsed.Elements {
		if el.Type != "count" {
			continue
		}
		if total, ok := el.Tags["total"]; ok {
			if n, convErr := strconv.Atoi(total); convErr == nil {
				count = n
			}
		}
	}

	if o.cache != nil {
		if cerr := o.cache.PutCount(ctx, key, count); cerr != nil {
			log.Printf("geo cache put failed key=%s: %v", key, cerr)
		}
	}

	return count, nil
}

// FeaturesAlongRoute lists buildings, POIs, and landuse areas within
// bufferMeters of the polyline.
func (o *OverpassGeoProvider) FeaturesAlongRoute(
	ctx context.Context,
	polyline []domain.Coordinates,
	bufferMeters float64,
) (_ []ports.Feature, err error) {
	defer obs.Time(ctx, "geo.FeaturesAlongRoute")(&err)

	if len(polyline) < 2 {
		return nil, fmt.Errorf("features along route: polyline needs at least 2 points, got %d", len(polyline))
	}

	key := featureCacheKey(polyline, bufferMeters)
	if o.cache != nil {
		if feats, ok, cerr := o.cache.GetFeatures(ctx, key); cerr != nil {
			log.Printf("geo cache get failed key=%s: %v", key, cerr)
		} else if ok {
			return feats, nil
		}
	}

	line := polylineLiteral(polyline)
	query := fmt.Sprintf(
		`[out:json][timeout:25];(`+
			`way["building"](around:%.0f,%s);`+
			`node["amenity"](around:%.0f,%s);`+
			`way["landuse"](around:%.0f,%s);`+
			`);out center;`,
		bufferMeters, line, bufferMeters, line, bufferMeters, line,
	)

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("features along route: %w", err)
	}
	defer resp.Body.Close()

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("features along route: decode response: %w", err)
	}

	features := make([]ports.Feature, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		f, ok := classify(el)
		if !ok {
			continue
		}
		features = append(features, f)
	}

	if o.cache != nil {
		if cerr := o.cache.PutFeatures(ctx, key, features); cerr != nil {
			log.Printf("geo cache put failed key=%s: %v", key, cerr)
		}
	}

	return features, nil
}

// classify maps raw OSM tags onto the engine's weight-table categories.
func classify(el overpassElement) (ports.Feature, bool) {
	pos := domain.Coordinates{Lat: el.Lat, Lon: el.Lon}
	if el.Center != nil {
		pos = domain.Coordinates{Lat: el.Center.Lat, Lon: el.Center.Lon}
	}
	if pos.Lat == 0 && pos.Lon == 0 {
		return ports.Feature{}, false
	}

	if v, ok := el.Tags["building"]; ok {
		return ports.Feature{Category: ports.FeatureCategoryBuilding, Type: v, Position: pos}, true
	}
	if v, ok := el.Tags["amenity"]; ok {
		return ports.Feature{Category: ports.FeatureCategoryPOI, Type: v, Position: pos}, true
	}
	if v, ok := el.Tags["landuse"]; ok {
		return ports.Feature{Category: ports.FeatureCategoryLanduse, Type: v, Position: pos}, true
	}
	return ports.Feature{}, false
}

func polylineLiteral(polyline []domain.Coordinates) string {
	parts := make([]string, 0, len(polyline))
	for _, p := range polyline {
		parts = append(parts, fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon))
	}
	return strings.Join(parts, ",")
}

// featureCacheKey keys route lookups by endpoints, length, and buffer;
// polylines are immutable content-store inputs so this is stable.
func featureCacheKey(polyline []domain.Coordinates, bufferMeters float64) string {
	first := polyline[0]
	last := polyline[len(polyline)-1]
	return fmt.Sprintf("features:%.5f:%.5f:%.5f:%.5f:%d:%.0f",
		first.Lat, first.Lon, last.Lat, last.Lon, len(polyline), bufferMeters)
}
