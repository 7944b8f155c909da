package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"weatherhub/internal/weather"
)

func newTestOpenWeather(baseURL string) *OpenWeatherProvider {
	p := NewOpenWeatherProvider(&http.Client{Timeout: time.Second}, "test-key")
	p.baseURL = baseURL
	p.geoURL = baseURL
	return p
}

// TestFetchCurrentErrorTaxonomy verifies the HTTP status to typed failure
// translation: 401, 429, and other non-2xx responses each map to their own
// error.
func TestFetchCurrentErrorTaxonomy(t *testing.T) {
	coord := weather.Coordinates{Lat: 51.5, Lon: -0.13}

	t.Run("unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := newTestOpenWeather(srv.URL).FetchCurrent(context.Background(), coord)
		if !errors.Is(err, weather.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := newTestOpenWeather(srv.URL).FetchCurrent(context.Background(), coord)
		if !errors.Is(err, weather.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("server error carries upstream message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"server error"}`))
		}))
		defer srv.Close()

		_, err := newTestOpenWeather(srv.URL).FetchCurrent(context.Background(), coord)
		var provErr *weather.ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
		if provErr.Status != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", provErr.Status)
		}
		if provErr.Message != "server error" {
			t.Errorf("expected upstream message, got %q", provErr.Message)
		}
	})

	t.Run("timeout is a network error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		p := NewOpenWeatherProvider(&http.Client{Timeout: 20 * time.Millisecond}, "test-key")
		p.baseURL = srv.URL

		_, err := p.FetchCurrent(context.Background(), coord)
		if !errors.Is(err, weather.ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
	})
}

func TestFetchCurrentNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("expected metric units requested, got %q", got)
		}
		w.Write([]byte(`{
			"dt": 1718000000,
			"timezone": 3600,
			"visibility": 10000,
			"main": {"temp": 18.4, "feels_like": 17.9, "humidity": 72, "pressure": 1013},
			"weather": [{"description": "light rain", "main": "Rain", "icon": "10d"}],
			"wind": {"speed": 4.1, "deg": 0},
			"clouds": {"all": 75},
			"sys": {"sunrise": 1717990000, "sunset": 1718040000}
		}`))
	}))
	defer srv.Close()

	conditions, err := newTestOpenWeather(srv.URL).FetchCurrent(context.Background(), weather.Coordinates{Lat: 51.5, Lon: -0.13})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if conditions.Temperature == nil || *conditions.Temperature != 18.4 {
		t.Errorf("unexpected temperature: %v", conditions.Temperature)
	}
	if conditions.Humidity == nil || *conditions.Humidity != 72 {
		t.Errorf("unexpected humidity: %v", conditions.Humidity)
	}
	if conditions.Description != "light rain" || conditions.Main != "Rain" || conditions.Icon != "10d" {
		t.Errorf("unexpected condition triple: %q/%q/%q", conditions.Description, conditions.Main, conditions.Icon)
	}
	if conditions.WindDirection == nil || *conditions.WindDirection != 0 {
		t.Errorf("expected wind direction 0 preserved, got %v", conditions.WindDirection)
	}
	if conditions.ObservedAt == nil || *conditions.ObservedAt != 1718000000 {
		t.Errorf("unexpected observation timestamp: %v", conditions.ObservedAt)
	}
}

// TestFetchCurrentMissingFieldsAreNull exercises the defensive extraction
// policy: absent upstream fields surface as nils, never as zeroes or errors.
func TestFetchCurrentMissingFieldsAreNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"main": {"temp": 5.0}}`))
	}))
	defer srv.Close()

	conditions, err := newTestOpenWeather(srv.URL).FetchCurrent(context.Background(), weather.Coordinates{Lat: 0, Lon: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conditions.Temperature == nil || *conditions.Temperature != 5.0 {
		t.Errorf("unexpected temperature: %v", conditions.Temperature)
	}
	if conditions.Humidity != nil || conditions.WindSpeed != nil || conditions.Sunrise != nil {
		t.Errorf("expected missing fields to stay nil: %+v", conditions)
	}
}

func TestFetchForecastGroupsByCalendarDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list": [
			{"dt": 1717761600, "dt_txt": "2024-06-07 12:00:00",
			 "main": {"temp": 15, "feels_like": 14, "temp_min": 12, "temp_max": 16, "humidity": 60, "pressure": 1010},
			 "weather": [{"description": "few clouds", "main": "Clouds", "icon": "02d"}],
			 "wind": {"speed": 3, "deg": 180}, "clouds": {"all": 20}},
			{"dt": 1717772400, "dt_txt": "2024-06-07 15:00:00",
			 "main": {"temp": 17, "feels_like": 16, "temp_min": 14, "temp_max": 19, "humidity": 55, "pressure": 1009},
			 "weather": [{"description": "few clouds", "main": "Clouds", "icon": "02d"}],
			 "wind": {"speed": 4, "deg": 190}, "clouds": {"all": 30}},
			{"dt": 1717848000, "dt_txt": "2024-06-08 12:00:00",
			 "main": {"temp": 20, "feels_like": 19, "temp_min": 18, "temp_max": 22, "humidity": 50, "pressure": 1012},
			 "weather": [{"description": "clear sky", "main": "Clear", "icon": "01d"}],
			 "wind": {"speed": 2, "deg": 90}, "clouds": {"all": 5}}
		]}`))
	}))
	defer srv.Close()

	p := newTestOpenWeather(srv.URL)

	forecast, err := p.FetchForecast(context.Background(), weather.Coordinates{Lat: 51.5, Lon: -0.13}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(forecast.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(forecast.Days))
	}

	first := forecast.Days[0]
	if first.Date != "2024-06-07" {
		t.Errorf("expected earliest date first, got %q", first.Date)
	}
	if len(first.Hours) != 2 {
		t.Errorf("expected 2 samples on first day, got %d", len(first.Hours))
	}
	if first.MinTemp == nil || *first.MinTemp != 12 {
		t.Errorf("expected day min 12, got %v", first.MinTemp)
	}
	if first.MaxTemp == nil || *first.MaxTemp != 19 {
		t.Errorf("expected day max 19, got %v", first.MaxTemp)
	}

	// The day clamp cuts the tail, never the earliest days.
	clamped, err := p.FetchForecast(context.Background(), weather.Coordinates{Lat: 51.5, Lon: -0.13}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clamped.Days) != 1 || clamped.Days[0].Date != "2024-06-07" {
		t.Errorf("expected only the first day, got %+v", clamped.Days)
	}
}

func TestSearchClampsLimit(t *testing.T) {
	var gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`[{"name": "London", "country": "GB", "state": "England", "lat": 51.5074, "lon": -0.1278}]`))
	}))
	defer srv.Close()

	p := newTestOpenWeather(srv.URL)

	results, err := p.Search(context.Background(), "London", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != "10" {
		t.Errorf("expected limit clamped to 10, got %q", gotLimit)
	}
	if len(results) != 1 || results[0].Name != "London" || results[0].Country != "GB" {
		t.Errorf("unexpected results: %+v", results)
	}

	if _, err := p.Search(context.Background(), "London", -3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != "1" {
		t.Errorf("expected limit clamped to 1, got %q", gotLimit)
	}
}

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
		}
		w.Write([]byte(`[{"name": "Westminster", "country": "GB", "lat": 51.5, "lon": -0.13}]`))
	}))
	defer srv.Close()

	name, err := newTestOpenWeather(srv.URL).ReverseGeocode(context.Background(), weather.Coordinates{Lat: 51.5, Lon: -0.13})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Westminster" {
		t.Errorf("expected Westminster, got %q", name)
	}
}

func TestRedactParamsHidesCredentials(t *testing.T) {
	params := url.Values{}
	params.Set("appid", "super-secret")
	params.Set("lat", "51.5")

	redacted := redactParams(params)
	if strings.Contains(redacted, "super-secret") {
		t.Fatalf("credential leaked into log output: %s", redacted)
	}
	if !strings.Contains(redacted, "lat=51.5") {
		t.Errorf("non-credential params should survive redaction: %s", redacted)
	}
}
