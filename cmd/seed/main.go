// Command seed populates the database with sample locations and preferences
// for a session, for local development and demos.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"weatherhub/internal/config"
	"weatherhub/internal/store"
)

type sampleCity struct {
	Name    string
	Country string
	Lat     float64
	Lon     float64
}

var cities = []sampleCity{
	{"London", "UK", 51.5074, -0.1278},
	{"New York", "US", 40.7128, -74.0060},
	{"Paris", "FR", 48.8566, 2.3522},
	{"Tokyo", "JP", 35.6895, 139.6917},
	{"Sydney", "AU", -33.8688, 151.2093},
	{"Toronto", "CA", 43.6532, -79.3832},
	{"Berlin", "DE", 52.5200, 13.4050},
	{"Mumbai", "IN", 19.0760, 72.8777},
}

func main() {
	count := flag.Int("locations", 5, "number of locations to create")
	session := flag.String("session", "", "explicit session_id to use")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required to seed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	pg := store.NewPostgresStore(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	sid := *session
	if sid == "" {
		sid = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	log.Printf("using session_id=%s", sid)

	prefs, err := pg.GetOrCreate(ctx, sid)
	if err != nil {
		log.Fatalf("failed to load preferences: %v", err)
	}
	prefs.TemperatureUnit = []string{"C", "F"}[rand.Intn(2)]
	prefs.Theme = []string{"light", "dark", "auto"}[rand.Intn(3)]
	if err := pg.Save(ctx, prefs); err != nil {
		log.Fatalf("failed to save preferences: %v", err)
	}
	log.Printf("created/updated preferences (unit=%s theme=%s)", prefs.TemperatureUnit, prefs.Theme)

	num := *count
	if num < 1 {
		num = 1
	}
	if num > len(cities) {
		num = len(cities)
	}

	created := 0
	for _, city := range rand.Perm(len(cities))[:num] {
		c := cities[city]
		if _, err := pg.FindByCoordinates(ctx, sid, c.Lat, c.Lon); err == nil {
			log.Printf("location exists: %s, %s", c.Name, c.Country)
			continue
		}
		_, err := pg.Create(ctx, store.Location{
			SessionID:  sid,
			CityName:   c.Name,
			Country:    c.Country,
			Latitude:   c.Lat,
			Longitude:  c.Lon,
			IsFavorite: created == 0,
		})
		if err != nil {
			log.Fatalf("failed to create location %s: %v", c.Name, err)
		}
		created++
		log.Printf("created location: %s, %s", c.Name, c.Country)
	}

	log.Printf("done: %d locations created for session %s", created, sid)
}
