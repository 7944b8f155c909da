package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"weatherhub/internal/common"
	"weatherhub/internal/store"
)

// Service orchestrates the per-capability provider chains and the TTL cache.
// On a cache miss it walks the capability's tiers in priority order, stores
// the normalized result, and reports freshness to the caller.
type Service struct {
	locations store.LocationStore
	cache     store.CacheStore
	chains    Chains

	now func() time.Time
}

// NewService creates a Service over the given stores and provider chains.
func NewService(locations store.LocationStore, cache store.CacheStore, chains Chains) *Service {
	return &Service{
		locations: locations,
		cache:     cache,
		chains:    chains,
		now:       time.Now,
	}
}

// CurrentResult is a current-weather response with cache freshness metadata.
type CurrentResult struct {
	Conditions *CurrentConditions
	Location   *store.Location
	Cached     bool
	CacheAge   string
}

// ForecastResult is a forecast response with cache freshness metadata.
type ForecastResult struct {
	Days     []DaySummary
	Location *store.Location
	Cached   bool
	CacheAge string
}

// Current returns current conditions for the coordinates, serving a valid
// cache entry when one exists and fetching, normalizing, and caching
// otherwise.
func (s *Service) Current(ctx context.Context, sessionID string, coord Coordinates) (*CurrentResult, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	loc, err := s.ResolveLocation(ctx, sessionID, coord)
	if err != nil {
		return nil, err
	}

	entry, err := s.cache.FindLatestValid(ctx, loc.ID, store.CacheCurrent)
	if err == nil {
		var cached CurrentConditions
		if jsonErr := json.Unmarshal(entry.Payload, &cached); jsonErr == nil {
			return &CurrentResult{
				Conditions: &cached,
				Location:   loc,
				Cached:     true,
				CacheAge:   common.HumanizeAgeMinutes(entry.AgeMinutes(s.now())),
			}, nil
		}
		log.Printf("ERROR: unreadable cached current payload for location %d; refetching", loc.ID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	conditions, err := s.fetchCurrent(ctx, coord)
	if err != nil {
		return nil, err
	}

	s.storePayload(ctx, loc.ID, store.CacheCurrent, conditions)

	return &CurrentResult{
		Conditions: conditions,
		Location:   loc,
		Cached:     false,
		CacheAge:   common.HumanizeAgeMinutes(0),
	}, nil
}

// ForecastDays returns the multi-day forecast for the coordinates, cache-aware
// like Current. The requested day count is passed to the selected provider,
// which clamps it to its own usable range.
func (s *Service) ForecastDays(ctx context.Context, sessionID string, coord Coordinates, days int) (*ForecastResult, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	loc, err := s.ResolveLocation(ctx, sessionID, coord)
	if err != nil {
		return nil, err
	}

	entry, err := s.cache.FindLatestValid(ctx, loc.ID, store.CacheForecast)
	if err == nil {
		var cached Forecast
		if jsonErr := json.Unmarshal(entry.Payload, &cached); jsonErr == nil {
			return &ForecastResult{
				Days:     cached.Days,
				Location: loc,
				Cached:   true,
				CacheAge: common.HumanizeAgeMinutes(entry.AgeMinutes(s.now())),
			}, nil
		}
		log.Printf("ERROR: unreadable cached forecast payload for location %d; refetching", loc.ID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	forecast, err := s.fetchForecast(ctx, coord, days)
	if err != nil {
		return nil, err
	}

	s.storePayload(ctx, loc.ID, store.CacheForecast, forecast)

	return &ForecastResult{
		Days:     forecast.Days,
		Location: loc,
		Cached:   false,
		CacheAge: common.HumanizeAgeMinutes(0),
	}, nil
}

// SearchLocations forward-geocodes a free-text query. Tiers are tried in
// order; an empty result moves to the next tier. When every tier fails or
// comes back empty, the no-key chain degrades to an empty list while the
// keyed chain surfaces its failure. A fabricated default location is never
// substituted.
func (s *Service) SearchLocations(ctx context.Context, query string, limit int) ([]GeocodeResult, error) {
	limit = ClampLimit(limit)

	var lastErr error
	for _, p := range s.chains.Search {
		results, err := p.Search(ctx, query, limit)
		if err != nil {
			if !fallbackEligible(err) {
				return nil, err
			}
			log.Printf("search provider %s failed for %q: %v", p.Name(), query, err)
			lastErr = err
			continue
		}
		if len(results) == 0 {
			continue
		}
		if len(results) > limit {
			results = results[:limit]
		}
		return results, nil
	}

	if s.chains.Keyed && lastErr != nil {
		return nil, lastErr
	}
	return []GeocodeResult{}, nil
}

// ReverseName resolves coordinates to a place name. All tier failures are
// swallowed: the no-key chain degrades to a "lat,lon" label and the keyed
// chain to an empty name, so the caller can substitute its own label.
func (s *Service) ReverseName(ctx context.Context, coord Coordinates) string {
	for _, p := range s.chains.Reverse {
		name, err := p.ReverseGeocode(ctx, coord)
		if err != nil {
			log.Printf("reverse geocode provider %s failed for %s: %v", p.Name(), coord.Label(), err)
			continue
		}
		if name != "" {
			return name
		}
	}
	if s.chains.Keyed {
		return ""
	}
	return coord.Label()
}

// ResolveLocation finds the session's saved row for the coordinates or
// creates one, naming it from reverse geocoding (truncated to 100 characters)
// with a "(lat,lon)" textual fallback.
func (s *Service) ResolveLocation(ctx context.Context, sessionID string, coord Coordinates) (*store.Location, error) {
	loc, err := s.locations.FindByCoordinates(ctx, sessionID, coord.Lat, coord.Lon)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	city := s.ReverseName(ctx, coord)
	if city == "" {
		city = fmt.Sprintf("(%v,%v)", coord.Lat, coord.Lon)
	}
	if len(city) > 100 {
		city = city[:100]
	}

	return s.locations.Create(ctx, store.Location{
		SessionID: sessionID,
		CityName:  city,
		Country:   "",
		Latitude:  coord.Lat,
		Longitude: coord.Lon,
	})
}

func (s *Service) fetchCurrent(ctx context.Context, coord Coordinates) (*CurrentConditions, error) {
	var lastErr error
	for _, p := range s.chains.Weather {
		conditions, err := p.FetchCurrent(ctx, coord)
		if err != nil {
			if !fallbackEligible(err) {
				return nil, err
			}
			log.Printf("weather provider %s current fetch failed for %s: %v", p.Name(), coord.Label(), err)
			lastErr = err
			continue
		}
		return conditions, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no weather providers configured")
}

func (s *Service) fetchForecast(ctx context.Context, coord Coordinates, days int) (*Forecast, error) {
	var lastErr error
	for _, p := range s.chains.Weather {
		forecast, err := p.FetchForecast(ctx, coord, days)
		if err != nil {
			if !fallbackEligible(err) {
				return nil, err
			}
			log.Printf("weather provider %s forecast fetch failed for %s: %v", p.Name(), coord.Label(), err)
			lastErr = err
			continue
		}
		return forecast, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no weather providers configured")
}

// storePayload appends a cache entry. Concurrent misses may both insert; the
// newest-entry-first lookup makes the duplicate harmless.
func (s *Service) storePayload(ctx context.Context, locationID int64, kind store.CacheKind, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s payload for location %d: %v", kind, locationID, err)
		return
	}
	if _, err := s.cache.Store(ctx, locationID, kind, raw); err != nil {
		log.Printf("ERROR: store %s cache entry for location %d: %v", kind, locationID, err)
	}
}
