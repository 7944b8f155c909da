package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "weatherhub/internal/api/http"
	"weatherhub/internal/config"
	"weatherhub/internal/scheduler"
	"weatherhub/internal/store"
	"weatherhub/internal/weather"
	"weatherhub/internal/weather/providers"
)

func main() {
	// Load configuration (.env + environment).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls; its timeout bounds
	// every provider attempt.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Persistence: Postgres when configured, in-memory otherwise.
	var stores httpapi.Stores
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			cancel()
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer pool.Close()

		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("failed to ensure schema: %v", err)
		}
		cancel()

		stores = httpapi.Stores{Locations: pg, Cache: pg, Preferences: pg}
		log.Printf("INFO: using postgres store")
	} else {
		mem := store.NewMemoryStore()
		stores = httpapi.Stores{Locations: mem, Cache: mem, Preferences: mem}
		log.Printf("INFO: DATABASE_URL not set; using in-memory store")
	}

	// Provider chains per capability. A configured key selects the keyed
	// provider exclusively; otherwise the free no-key chain is used.
	var chains weather.Chains
	if cfg.OpenWeatherAPIKey != "" {
		ow := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)
		chains = weather.Chains{
			Weather: []weather.WeatherProvider{ow},
			Search:  []weather.SearchProvider{ow},
			Reverse: []weather.ReverseProvider{ow},
			Keyed:   true,
		}
	} else {
		om := providers.NewOpenMeteoProvider(httpClient)
		geo := providers.NewOpenMeteoGeocoder(httpClient)
		nom := providers.NewNominatimGeocoder(httpClient, cfg.NominatimUserAgent)
		chains = weather.Chains{
			Weather: []weather.WeatherProvider{om},
			Search:  []weather.SearchProvider{geo, nom},
			Reverse: []weather.ReverseProvider{geo},
		}
		log.Printf("INFO: OPENWEATHER_API_KEY not set; using no-key providers")
	}

	// Core service orchestrating providers and the TTL cache.
	service := weather.NewService(stores.Locations, stores.Cache, chains)

	// Periodic cleanup of cache entries past retention.
	sched := scheduler.New(stores.Cache, cfg.CacheMaxAge, cfg.CleanupInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weatherhub",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weatherhub",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, stores)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
