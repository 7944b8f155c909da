package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a concurrency-safe in-memory implementation of the location,
// cache, and preferences stores. It backs local development and tests; the
// Postgres implementation is used when DATABASE_URL is configured.
type MemoryStore struct {
	mu sync.RWMutex

	nextLocationID int64
	nextCacheID    int64

	locations []Location
	cache     []CacheEntry
	prefs     map[string]*Preferences

	// now is injectable so TTL behavior can be tested deterministically.
	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextLocationID: 1,
		nextCacheID:    1,
		prefs:          make(map[string]*Preferences),
		now:            time.Now,
	}
}

// SetClock overrides the store's time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) FindByCoordinates(ctx context.Context, sessionID string, lat, lon float64) (*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.locations {
		loc := s.locations[i]
		if loc.SessionID == sessionID && loc.Latitude == lat && loc.Longitude == lon {
			out := loc
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Create(ctx context.Context, loc Location) (*Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc.ID = s.nextLocationID
	s.nextLocationID++
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = s.now()
	}
	s.locations = append(s.locations, loc)

	out := loc
	return &out, nil
}

func (s *MemoryStore) ListBySession(ctx context.Context, sessionID string) ([]Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Location
	for i := range s.locations {
		if s.locations[i].SessionID == sessionID {
			result = append(result, s.locations[i])
		}
	}

	// Favorites first, then most recently created.
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].IsFavorite != result[j].IsFavorite {
			return result[i].IsFavorite
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64, sessionID string) (*Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.locations {
		if s.locations[i].ID == id && s.locations[i].SessionID == sessionID {
			out := s.locations[i]
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Delete(ctx context.Context, id int64, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.locations {
		if s.locations[i].ID == id && s.locations[i].SessionID == sessionID {
			s.locations = append(s.locations[:i], s.locations[i+1:]...)

			// Cascade: drop cache entries for the removed location.
			kept := s.cache[:0]
			for _, e := range s.cache {
				if e.LocationID != id {
					kept = append(kept, e)
				}
			}
			s.cache = kept
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ToggleFavorite(ctx context.Context, id int64, sessionID string) (*Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.locations {
		if s.locations[i].ID == id && s.locations[i].SessionID == sessionID {
			s.locations[i].IsFavorite = !s.locations[i].IsFavorite
			out := s.locations[i]
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindLatestValid(ctx context.Context, locationID int64, kind CacheKind) (*CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-TTLFor(kind))

	// Entries are appended in creation order; scan from the newest.
	for i := len(s.cache) - 1; i >= 0; i-- {
		e := s.cache[i]
		if e.LocationID != locationID || e.Kind != kind {
			continue
		}
		if e.CachedAt.Before(cutoff) {
			return nil, ErrNotFound
		}
		out := e
		return &out, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Store(ctx context.Context, locationID int64, kind CacheKind, payload json.RawMessage) (*CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := CacheEntry{
		ID:         s.nextCacheID,
		LocationID: locationID,
		Kind:       kind,
		Payload:    payload,
		CachedAt:   s.now(),
	}
	s.nextCacheID++
	s.cache = append(s.cache, entry)

	out := entry
	return &out, nil
}

func (s *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	kept := s.cache[:0]
	for _, e := range s.cache {
		if e.CachedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.cache = kept
	return deleted, nil
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, sessionID string) (*Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.prefs[sessionID]; ok {
		out := *p
		return &out, nil
	}
	p := &Preferences{
		SessionID:       sessionID,
		TemperatureUnit: "C",
		Theme:           "auto",
		UpdatedAt:       s.now(),
	}
	s.prefs[sessionID] = p

	out := *p
	return &out, nil
}

func (s *MemoryStore) Save(ctx context.Context, prefs *Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *prefs
	p.UpdatedAt = s.now()
	s.prefs[prefs.SessionID] = &p
	prefs.UpdatedAt = p.UpdatedAt
	return nil
}
