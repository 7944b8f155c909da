package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"weatherhub/internal/store"
	"weatherhub/internal/weather"
)

var validate = validator.New()

// Stores bundles the persistence contracts the handlers consume directly.
type Stores struct {
	Locations   store.LocationStore
	Cache       store.CacheStore
	Preferences store.PreferencesStore
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, stores Stores) {
	v1 := app.Group("/api/v1", SessionMiddleware())

	v1.Get("/health", func(c *fiber.Ctx) error {
		return success(c, fiber.StatusOK, fiber.Map{
			"status":      "ok",
			"server_time": time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		coord, err := parseCoordinates(c)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}

		result, err := service.Current(c.Context(), sessionID(c), coord)
		if err != nil {
			return fail(c, fiber.StatusBadGateway, fmt.Sprintf("Failed to fetch current weather: %v", err))
		}

		return success(c, fiber.StatusOK, fiber.Map{
			"data":      result.Conditions,
			"cached":    result.Cached,
			"cache_age": result.CacheAge,
		})
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		coord, err := parseCoordinates(c)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}

		days, err := strconv.Atoi(c.Query("days", "7"))
		if err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid days value")
		}
		days = weather.ClampDays(days, 7)

		result, err := service.ForecastDays(c.Context(), sessionID(c), coord, days)
		if err != nil {
			return fail(c, fiber.StatusBadGateway, fmt.Sprintf("Failed to fetch forecast: %v", err))
		}

		return success(c, fiber.StatusOK, fiber.Map{
			"data":      result.Days,
			"cached":    result.Cached,
			"cache_age": result.CacheAge,
		})
	})

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return fail(c, fiber.StatusBadRequest, "Missing required parameter: q")
		}

		results, err := service.SearchLocations(c.Context(), query, 5)
		if err != nil {
			return fail(c, fiber.StatusBadGateway, fmt.Sprintf("Failed to search locations: %v", err))
		}
		return success(c, fiber.StatusOK, fiber.Map{"results": results})
	})

	v1.Post("/locations/save", func(c *fiber.Ctx) error {
		var req saveLocationRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}

		sid := req.SessionID
		if sid == "" {
			sid = sessionID(c)
		}
		if sid == "" {
			return fail(c, fiber.StatusBadRequest, "session_id is required")
		}

		existing, err := stores.Locations.FindByCoordinates(c.Context(), sid, *req.Lat, *req.Lon)
		if err == nil {
			return success(c, fiber.StatusOK, fiber.Map{"location": existing, "created": false})
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fail(c, fiber.StatusInternalServerError, "Failed to save location")
		}

		city := req.City
		if city == "" {
			city = fmt.Sprintf("(%v,%v)", *req.Lat, *req.Lon)
		}
		loc, err := stores.Locations.Create(c.Context(), store.Location{
			SessionID: sid,
			CityName:  city,
			Country:   req.Country,
			Latitude:  *req.Lat,
			Longitude: *req.Lon,
		})
		if err != nil {
			return fail(c, fiber.StatusInternalServerError, "Failed to save location")
		}
		return success(c, fiber.StatusCreated, fiber.Map{"location": loc, "created": true})
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		sid := c.Query("session_id")
		if sid == "" {
			sid = sessionID(c)
		}
		if sid == "" {
			return fail(c, fiber.StatusBadRequest, "session_id is required")
		}

		locs, err := stores.Locations.ListBySession(c.Context(), sid)
		if err != nil {
			return fail(c, fiber.StatusInternalServerError, "Failed to list locations")
		}

		items := make([]fiber.Map, 0, len(locs))
		for _, loc := range locs {
			// Attach the currently valid cached conditions, when present.
			var conditions json.RawMessage
			if entry, cacheErr := stores.Cache.FindLatestValid(c.Context(), loc.ID, store.CacheCurrent); cacheErr == nil {
				conditions = entry.Payload
			}
			items = append(items, fiber.Map{
				"id":          loc.ID,
				"city_name":   loc.CityName,
				"country":     loc.Country,
				"latitude":    loc.Latitude,
				"longitude":   loc.Longitude,
				"is_favorite": loc.IsFavorite,
				"created_at":  loc.CreatedAt,
				"weather":     conditions,
			})
		}
		return success(c, fiber.StatusOK, fiber.Map{"locations": items})
	})

	v1.Delete("/locations/:id", func(c *fiber.Ctx) error {
		id, sid, err := locationParams(c)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}

		if err := stores.Locations.Delete(c.Context(), id, sid); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fail(c, fiber.StatusNotFound, "Location not found")
			}
			return fail(c, fiber.StatusInternalServerError, "Failed to delete location")
		}
		return success(c, fiber.StatusOK, fiber.Map{"message": "Location deleted"})
	})

	v1.Post("/locations/:id/favorite", func(c *fiber.Ctx) error {
		id, sid, err := locationParams(c)
		if err != nil {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}

		loc, err := stores.Locations.ToggleFavorite(c.Context(), id, sid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fail(c, fiber.StatusNotFound, "Location not found")
			}
			return fail(c, fiber.StatusInternalServerError, "Failed to update location")
		}
		return success(c, fiber.StatusOK, fiber.Map{"location": loc})
	})

	v1.Get("/preferences", func(c *fiber.Ctx) error {
		sid := c.Query("session_id")
		if sid == "" {
			sid = sessionID(c)
		}
		if sid == "" {
			return fail(c, fiber.StatusBadRequest, "session_id is required")
		}

		prefs, err := stores.Preferences.GetOrCreate(c.Context(), sid)
		if err != nil {
			return fail(c, fiber.StatusInternalServerError, "Failed to load preferences")
		}
		return success(c, fiber.StatusOK, fiber.Map{"preferences": prefs})
	})

	v1.Post("/preferences/update", func(c *fiber.Ctx) error {
		var req updatePreferencesRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}

		sid := req.SessionID
		if sid == "" {
			sid = sessionID(c)
		}
		if sid == "" {
			return fail(c, fiber.StatusBadRequest, "session_id is required")
		}

		prefs, err := stores.Preferences.GetOrCreate(c.Context(), sid)
		if err != nil {
			return fail(c, fiber.StatusInternalServerError, "Failed to load preferences")
		}

		if req.TemperatureUnit != "" {
			prefs.TemperatureUnit = req.TemperatureUnit
		}
		if req.Theme != "" {
			prefs.Theme = req.Theme
		}
		if len(req.DefaultLocation) > 0 && string(req.DefaultLocation) != "null" {
			locID, parseErr := parseDefaultLocation(req.DefaultLocation)
			if parseErr != nil {
				return fail(c, fiber.StatusBadRequest, "Invalid default_location")
			}
			if locID == nil {
				prefs.DefaultLocationID = nil
			} else {
				// The referenced location must belong to this session.
				if _, lookupErr := stores.Locations.Get(c.Context(), *locID, sid); lookupErr != nil {
					return fail(c, fiber.StatusBadRequest, "default_location not found for this session")
				}
				prefs.DefaultLocationID = locID
			}
		}

		if err := stores.Preferences.Save(c.Context(), prefs); err != nil {
			return fail(c, fiber.StatusInternalServerError, "Failed to save preferences")
		}
		return success(c, fiber.StatusOK, fiber.Map{"preferences": prefs})
	})
}

type saveLocationRequest struct {
	SessionID string   `json:"session_id"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
	Lat       *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lon       *float64 `json:"lon" validate:"required,min=-180,max=180"`
}

type updatePreferencesRequest struct {
	SessionID       string          `json:"session_id"`
	TemperatureUnit string          `json:"temperature_unit" validate:"omitempty,oneof=C F"`
	Theme           string          `json:"theme" validate:"omitempty,oneof=light dark auto"`
	DefaultLocation json.RawMessage `json:"default_location"`
}

// parseCoordinates reads and range-checks the lat/lon query parameters. Any
// violation is a caller input error reported before a provider is contacted.
func parseCoordinates(c *fiber.Ctx) (weather.Coordinates, error) {
	lat, err := parseFloatParam(c, "lat")
	if err != nil {
		return weather.Coordinates{}, err
	}
	lon, err := parseFloatParam(c, "lon")
	if err != nil {
		return weather.Coordinates{}, err
	}
	if lat < -90 || lat > 90 {
		return weather.Coordinates{}, errors.New("Latitude out of range [-90, 90]")
	}
	if lon < -180 || lon > 180 {
		return weather.Coordinates{}, errors.New("Longitude out of range [-180, 180]")
	}
	return weather.Coordinates{Lat: lat, Lon: lon}, nil
}

func parseFloatParam(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("Missing required parameter: %s", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("Invalid %s value", name)
	}
	return v, nil
}

func locationParams(c *fiber.Ctx) (int64, string, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, "", errors.New("Invalid location id")
	}
	sid := c.Query("session_id")
	if sid == "" {
		sid = sessionID(c)
	}
	if sid == "" {
		return 0, "", errors.New("session_id is required")
	}
	return id, sid, nil
}

// parseDefaultLocation accepts a location id as a JSON number or string; an
// empty string clears the default.
func parseDefaultLocation(raw json.RawMessage) (*int64, error) {
	var asInt int64
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return &asInt, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return nil, err
	}
	if asString == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(asString, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
