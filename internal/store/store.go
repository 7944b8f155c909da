package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no matching row exists (or none is still valid).
	ErrNotFound = errors.New("not found")
)

// CacheKind discriminates the cached payloads; each kind has its own TTL.
type CacheKind string

const (
	CacheCurrent  CacheKind = "current"
	CacheForecast CacheKind = "forecast"
)

// TTLFor returns the validity window for a cache kind: current entries are
// valid for 10 minutes from creation, forecast entries for 60 minutes.
func TTLFor(kind CacheKind) time.Duration {
	if kind == CacheForecast {
		return time.Hour
	}
	return 10 * time.Minute
}

// Location is a per-session saved place the cache keys against.
type Location struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"-"`
	CityName   string    `json:"city_name"`
	Country    string    `json:"country"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
}

// CacheEntry is one normalized weather payload stored for a (location, kind)
// key. Entries are append-only and never mutated; invalidation is purely
// time-based.
type CacheEntry struct {
	ID         int64
	LocationID int64
	Kind       CacheKind
	Payload    json.RawMessage
	CachedAt   time.Time
}

// AgeMinutes returns the whole minutes elapsed since the entry was created.
func (e *CacheEntry) AgeMinutes(now time.Time) int {
	return int(now.Sub(e.CachedAt).Minutes())
}

// Preferences holds per-session display settings.
type Preferences struct {
	SessionID         string    `json:"session_id"`
	TemperatureUnit   string    `json:"temperature_unit"`
	Theme             string    `json:"theme"`
	DefaultLocationID *int64    `json:"default_location"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// LocationStore is the contract for saved-location persistence.
type LocationStore interface {
	FindByCoordinates(ctx context.Context, sessionID string, lat, lon float64) (*Location, error)
	Create(ctx context.Context, loc Location) (*Location, error)
	ListBySession(ctx context.Context, sessionID string) ([]Location, error)
	Get(ctx context.Context, id int64, sessionID string) (*Location, error)
	Delete(ctx context.Context, id int64, sessionID string) error
	ToggleFavorite(ctx context.Context, id int64, sessionID string) (*Location, error)
}

// CacheStore is the contract for the append-only weather cache.
type CacheStore interface {
	// FindLatestValid selects the most recently created entry for the key and
	// applies the kind's TTL; ErrNotFound covers both absent and expired.
	FindLatestValid(ctx context.Context, locationID int64, kind CacheKind) (*CacheEntry, error)
	// Store creates a new timestamped entry; prior entries are kept.
	Store(ctx context.Context, locationID int64, kind CacheKind, payload json.RawMessage) (*CacheEntry, error)
	// DeleteOlderThan removes entries created before the cutoff and reports
	// how many were dropped. Used by the periodic cleanup job only.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PreferencesStore is the contract for per-session preferences.
type PreferencesStore interface {
	// GetOrCreate returns the session's preferences, creating defaults
	// (Celsius, auto theme) on first access.
	GetOrCreate(ctx context.Context, sessionID string) (*Preferences, error)
	Save(ctx context.Context, prefs *Preferences) error
}
