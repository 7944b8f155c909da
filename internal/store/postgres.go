package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx, so the
// same store code works inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements LocationStore, CacheStore, and PreferencesStore on
// top of pgx.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a PostgresStore backed by the given connection
// (pool or transaction).
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pgx pool for the given URL and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS locations (
			id          BIGSERIAL PRIMARY KEY,
			session_id  TEXT NOT NULL,
			city_name   VARCHAR(100) NOT NULL,
			country     TEXT NOT NULL DEFAULT '',
			latitude    DOUBLE PRECISION NOT NULL,
			longitude   DOUBLE PRECISION NOT NULL,
			is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (session_id, latitude, longitude)
		);
		CREATE INDEX IF NOT EXISTS idx_locations_session ON locations (session_id);

		CREATE TABLE IF NOT EXISTS weather_cache (
			id          BIGSERIAL PRIMARY KEY,
			location_id BIGINT NOT NULL REFERENCES locations (id) ON DELETE CASCADE,
			cache_type  TEXT NOT NULL,
			payload     JSONB NOT NULL,
			cached_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_weather_cache_lookup
			ON weather_cache (location_id, cache_type, cached_at DESC);

		CREATE TABLE IF NOT EXISTS user_preferences (
			session_id          TEXT PRIMARY KEY,
			temperature_unit    VARCHAR(1) NOT NULL DEFAULT 'C',
			theme               VARCHAR(10) NOT NULL DEFAULT 'auto',
			default_location_id BIGINT REFERENCES locations (id) ON DELETE SET NULL,
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByCoordinates(ctx context.Context, sessionID string, lat, lon float64) (*Location, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, session_id, city_name, country, latitude, longitude, is_favorite, created_at
		 FROM locations
		 WHERE session_id = $1 AND latitude = $2 AND longitude = $3`,
		sessionID, lat, lon,
	)
	return scanLocation(row)
}

func (s *PostgresStore) Create(ctx context.Context, loc Location) (*Location, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO locations (session_id, city_name, country, latitude, longitude, is_favorite)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		loc.SessionID, loc.CityName, loc.Country, loc.Latitude, loc.Longitude, loc.IsFavorite,
	)
	if err := row.Scan(&loc.ID, &loc.CreatedAt); err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return &loc, nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string) ([]Location, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, city_name, country, latitude, longitude, is_favorite, created_at
		 FROM locations
		 WHERE session_id = $1
		 ORDER BY is_favorite DESC, created_at DESC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var result []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.SessionID, &loc.CityName, &loc.Country,
			&loc.Latitude, &loc.Longitude, &loc.IsFavorite, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		result = append(result, loc)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id int64, sessionID string) (*Location, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, session_id, city_name, country, latitude, longitude, is_favorite, created_at
		 FROM locations
		 WHERE id = $1 AND session_id = $2`,
		id, sessionID,
	)
	return scanLocation(row)
}

func (s *PostgresStore) Delete(ctx context.Context, id int64, sessionID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM locations WHERE id = $1 AND session_id = $2`, id, sessionID)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ToggleFavorite(ctx context.Context, id int64, sessionID string) (*Location, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE locations SET is_favorite = NOT is_favorite
		 WHERE id = $1 AND session_id = $2
		 RETURNING id, session_id, city_name, country, latitude, longitude, is_favorite, created_at`,
		id, sessionID,
	)
	return scanLocation(row)
}

func (s *PostgresStore) FindLatestValid(ctx context.Context, locationID int64, kind CacheKind) (*CacheEntry, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, location_id, cache_type, payload, cached_at
		 FROM weather_cache
		 WHERE location_id = $1 AND cache_type = $2
		 ORDER BY cached_at DESC
		 LIMIT 1`,
		locationID, string(kind),
	)

	var e CacheEntry
	var kindStr string
	if err := row.Scan(&e.ID, &e.LocationID, &kindStr, &e.Payload, &e.CachedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find cache entry: %w", err)
	}
	e.Kind = CacheKind(kindStr)

	// Validity is purely time-based; the expired newest entry means a miss.
	if time.Since(e.CachedAt) > TTLFor(kind) {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *PostgresStore) Store(ctx context.Context, locationID int64, kind CacheKind, payload json.RawMessage) (*CacheEntry, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO weather_cache (location_id, cache_type, payload)
		 VALUES ($1, $2, $3)
		 RETURNING id, cached_at`,
		locationID, string(kind), payload,
	)
	e := CacheEntry{LocationID: locationID, Kind: kind, Payload: payload}
	if err := row.Scan(&e.ID, &e.CachedAt); err != nil {
		return nil, fmt.Errorf("store cache entry: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM weather_cache WHERE cached_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, sessionID string) (*Preferences, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO user_preferences (session_id)
		 VALUES ($1)
		 ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
		 RETURNING session_id, temperature_unit, theme, default_location_id, updated_at`,
		sessionID,
	)
	var p Preferences
	if err := row.Scan(&p.SessionID, &p.TemperatureUnit, &p.Theme, &p.DefaultLocationID, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("get or create preferences: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Save(ctx context.Context, prefs *Preferences) error {
	row := s.db.QueryRow(ctx,
		`INSERT INTO user_preferences (session_id, temperature_unit, theme, default_location_id, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (session_id) DO UPDATE SET
			temperature_unit = EXCLUDED.temperature_unit,
			theme = EXCLUDED.theme,
			default_location_id = EXCLUDED.default_location_id,
			updated_at = NOW()
		 RETURNING updated_at`,
		prefs.SessionID, prefs.TemperatureUnit, prefs.Theme, prefs.DefaultLocationID,
	)
	if err := row.Scan(&prefs.UpdatedAt); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func scanLocation(row pgx.Row) (*Location, error) {
	var loc Location
	err := row.Scan(&loc.ID, &loc.SessionID, &loc.CityName, &loc.Country,
		&loc.Latitude, &loc.Longitude, &loc.IsFavorite, &loc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan location: %w", err)
	}
	return &loc, nil
}
