package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"weatherhub/internal/store"
	"weatherhub/internal/weather"
)

type stubWeatherProvider struct{}

func (stubWeatherProvider) Name() string { return "stub" }

func (stubWeatherProvider) FetchCurrent(ctx context.Context, coord weather.Coordinates) (*weather.CurrentConditions, error) {
	temp := 19.5
	return &weather.CurrentConditions{Temperature: &temp, Description: "clear sky", Main: "Clear", Icon: "01d"}, nil
}

func (stubWeatherProvider) FetchForecast(ctx context.Context, coord weather.Coordinates, days int) (*weather.Forecast, error) {
	return &weather.Forecast{Days: []weather.DaySummary{{Date: "2024-06-01"}}}, nil
}

type stubSearchProvider struct{}

func (stubSearchProvider) Name() string { return "stub" }

func (stubSearchProvider) Search(ctx context.Context, query string, limit int) ([]weather.GeocodeResult, error) {
	return []weather.GeocodeResult{{Name: "London", Country: "United Kingdom", Lat: 51.5074, Lon: -0.1278}}, nil
}

type stubReverseProvider struct{}

func (stubReverseProvider) Name() string { return "stub" }

func (stubReverseProvider) ReverseGeocode(ctx context.Context, coord weather.Coordinates) (string, error) {
	return "London", nil
}

func newTestApp() (*fiber.App, *store.MemoryStore) {
	mem := store.NewMemoryStore()
	svc := weather.NewService(mem, mem, weather.Chains{
		Weather: []weather.WeatherProvider{stubWeatherProvider{}},
		Search:  []weather.SearchProvider{stubSearchProvider{}},
		Reverse: []weather.ReverseProvider{stubReverseProvider{}},
	})

	app := fiber.New()
	RegisterRoutes(app, svc, Stores{Locations: mem, Cache: mem, Preferences: mem})
	return app, mem
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Cookie", "session_id=abcdef0123456789abcdef0123456789")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, target, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope from %s: %v", raw, err)
	}
	return resp, env
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp()

	resp, env := doRequest(t, app, "GET", "/api/v1/health", "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("expected healthy response, got %d success=%v", resp.StatusCode, env.Success)
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Status != "ok" {
		t.Errorf("unexpected health payload: %s", env.Data)
	}
}

func TestSessionCookieIssuedOnlyWhenAbsent(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()

	var issued string
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			issued = c.Value
		}
	}
	if len(issued) != 32 {
		t.Fatalf("expected a 32-character session id cookie, got %q", issued)
	}

	// A request that already carries the cookie gets no new one.
	req = httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("Cookie", "session_id="+issued)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			t.Errorf("expected no cookie reissue, got %q", c.Value)
		}
	}
}

func TestCurrentWeatherValidation(t *testing.T) {
	app, _ := newTestApp()

	cases := []struct {
		target  string
		wantErr string
	}{
		{"/api/v1/weather/current?lon=0", "Missing required parameter: lat"},
		{"/api/v1/weather/current?lat=abc&lon=0", "Invalid lat value"},
		{"/api/v1/weather/current?lat=91&lon=0", "Latitude out of range [-90, 90]"},
		{"/api/v1/weather/current?lat=0&lon=-200", "Longitude out of range [-180, 180]"},
	}
	for _, tc := range cases {
		resp, env := doRequest(t, app, "GET", tc.target, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.target, resp.StatusCode)
			continue
		}
		if env.Error == nil || *env.Error != tc.wantErr {
			t.Errorf("%s: expected error %q, got %v", tc.target, tc.wantErr, env.Error)
		}
	}
}

func TestCurrentWeatherHappyPath(t *testing.T) {
	app, _ := newTestApp()

	resp, env := doRequest(t, app, "GET", "/api/v1/weather/current?lat=51.5&lon=-0.13", "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("expected success, got %d success=%v", resp.StatusCode, env.Success)
	}

	var data struct {
		Data struct {
			Temperature *float64 `json:"temperature"`
			Weather     string   `json:"weather"`
		} `json:"data"`
		Cached   bool   `json:"cached"`
		CacheAge string `json:"cache_age"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.Cached || data.CacheAge != "just now" {
		t.Errorf("expected a fresh fetch, got cached=%v age=%q", data.Cached, data.CacheAge)
	}
	if data.Data.Temperature == nil || *data.Data.Temperature != 19.5 {
		t.Errorf("unexpected temperature: %v", data.Data.Temperature)
	}
	if data.Data.Weather != "clear sky" {
		t.Errorf("unexpected description: %q", data.Data.Weather)
	}

	// Identical follow-up request is served from cache.
	_, env = doRequest(t, app, "GET", "/api/v1/weather/current?lat=51.5&lon=-0.13", "")
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !data.Cached {
		t.Error("expected second request to hit the cache")
	}
}

func TestForecastRejectsNonNumericDays(t *testing.T) {
	app, _ := newTestApp()

	resp, env := doRequest(t, app, "GET", "/api/v1/weather/forecast?lat=51.5&lon=-0.13&days=abc", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if env.Error == nil || *env.Error != "Invalid days value" {
		t.Errorf("unexpected error: %v", env.Error)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	app, _ := newTestApp()

	resp, env := doRequest(t, app, "GET", "/api/v1/locations/search", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if env.Error == nil || *env.Error != "Missing required parameter: q" {
		t.Errorf("unexpected error: %v", env.Error)
	}

	resp, env = doRequest(t, app, "GET", "/api/v1/locations/search?q=London", "")
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("expected success, got %d", resp.StatusCode)
	}
	var data struct {
		Results []weather.GeocodeResult `json:"results"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(data.Results) != 1 || data.Results[0].Name != "London" {
		t.Errorf("unexpected results: %+v", data.Results)
	}
}

func TestSaveLocationDeduplicates(t *testing.T) {
	app, _ := newTestApp()

	body := `{"city": "London", "country": "UK", "lat": 51.5074, "lon": -0.1278}`
	resp, env := doRequest(t, app, "POST", "/api/v1/locations/save", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, env.Error)
	}
	var data struct {
		Created  bool           `json:"created"`
		Location store.Location `json:"location"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !data.Created || data.Location.CityName != "London" {
		t.Errorf("unexpected creation payload: %+v", data)
	}

	// Same coordinates for the same session: the existing row comes back.
	resp, env = doRequest(t, app, "POST", "/api/v1/locations/save", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", resp.StatusCode)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.Created {
		t.Error("expected created=false for duplicate coordinates")
	}

	// A body without coordinates fails validation.
	resp, _ = doRequest(t, app, "POST", "/api/v1/locations/save", `{"city": "Nowhere"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing coordinates, got %d", resp.StatusCode)
	}
}

func TestFavoriteUnknownLocation(t *testing.T) {
	app, _ := newTestApp()

	resp, env := doRequest(t, app, "POST", "/api/v1/locations/999/favorite", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if env.Error == nil || *env.Error != "Location not found" {
		t.Errorf("unexpected error: %v", env.Error)
	}
}

func TestDeleteLocation(t *testing.T) {
	app, mem := newTestApp()

	loc, err := mem.Create(context.Background(), store.Location{
		SessionID: "abcdef0123456789abcdef0123456789",
		CityName:  "Paris",
		Latitude:  48.85,
		Longitude: 2.35,
	})
	if err != nil {
		t.Fatalf("seed location: %v", err)
	}

	resp, _ := doRequest(t, app, "DELETE", "/api/v1/locations/"+itoa(loc.ID), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ = doRequest(t, app, "DELETE", "/api/v1/locations/"+itoa(loc.ID), "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for already-deleted location, got %d", resp.StatusCode)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	app, mem := newTestApp()

	resp, env := doRequest(t, app, "GET", "/api/v1/preferences", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var data struct {
		Preferences store.Preferences `json:"preferences"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.Preferences.TemperatureUnit != "C" || data.Preferences.Theme != "auto" {
		t.Errorf("unexpected defaults: %+v", data.Preferences)
	}

	resp, env = doRequest(t, app, "POST", "/api/v1/preferences/update", `{"temperature_unit": "F", "theme": "dark"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", resp.StatusCode, env.Error)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.Preferences.TemperatureUnit != "F" || data.Preferences.Theme != "dark" {
		t.Errorf("update not applied: %+v", data.Preferences)
	}

	// Rejected values never reach the store.
	resp, _ = doRequest(t, app, "POST", "/api/v1/preferences/update", `{"temperature_unit": "K"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid unit, got %d", resp.StatusCode)
	}

	// A default location must belong to the caller's session.
	foreign, err := mem.Create(context.Background(), store.Location{SessionID: "other", CityName: "Oslo", Latitude: 59.9, Longitude: 10.75})
	if err != nil {
		t.Fatalf("seed foreign location: %v", err)
	}
	resp, env = doRequest(t, app, "POST", "/api/v1/preferences/update", `{"default_location": `+itoa(foreign.ID)+`}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for foreign default location, got %d", resp.StatusCode)
	}
	if env.Error == nil || *env.Error != "default_location not found for this session" {
		t.Errorf("unexpected error: %v", env.Error)
	}

	// Owned locations are accepted, as numbers or strings.
	owned, err := mem.Create(context.Background(), store.Location{
		SessionID: "abcdef0123456789abcdef0123456789",
		CityName:  "Madrid",
		Latitude:  40.42,
		Longitude: -3.7,
	})
	if err != nil {
		t.Fatalf("seed owned location: %v", err)
	}
	resp, env = doRequest(t, app, "POST", "/api/v1/preferences/update", `{"default_location": "`+itoa(owned.ID)+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", resp.StatusCode, env.Error)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.Preferences.DefaultLocationID == nil || *data.Preferences.DefaultLocationID != owned.ID {
		t.Errorf("default location not set: %+v", data.Preferences)
	}

	// An empty string clears it.
	resp, env = doRequest(t, app, "POST", "/api/v1/preferences/update", `{"default_location": ""}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.Preferences.DefaultLocationID != nil {
		t.Errorf("expected default location cleared, got %v", *data.Preferences.DefaultLocationID)
	}
}

func TestListLocationsIncludesCachedWeather(t *testing.T) {
	app, mem := newTestApp()

	loc, err := mem.Create(context.Background(), store.Location{
		SessionID: "abcdef0123456789abcdef0123456789",
		CityName:  "Berlin",
		Latitude:  52.52,
		Longitude: 13.405,
	})
	if err != nil {
		t.Fatalf("seed location: %v", err)
	}
	if _, err := mem.Store(context.Background(), loc.ID, store.CacheCurrent, json.RawMessage(`{"temperature": 17}`)); err != nil {
		t.Fatalf("seed cache entry: %v", err)
	}

	resp, env := doRequest(t, app, "GET", "/api/v1/locations", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var data struct {
		Locations []struct {
			CityName string          `json:"city_name"`
			Weather  json.RawMessage `json:"weather"`
		} `json:"locations"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(data.Locations) != 1 || data.Locations[0].CityName != "Berlin" {
		t.Fatalf("unexpected listing: %+v", data.Locations)
	}
	var conditions struct {
		Temperature float64 `json:"temperature"`
	}
	if err := json.Unmarshal(data.Locations[0].Weather, &conditions); err != nil || conditions.Temperature != 17 {
		t.Errorf("expected cached conditions attached, got %s", data.Locations[0].Weather)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
