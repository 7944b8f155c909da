package weather

import (
	"context"
)

// WeatherProvider abstracts an upstream source of current conditions and
// multi-day forecasts (e.g. OpenWeatherMap, Open-Meteo).
type WeatherProvider interface {
	Name() string
	FetchCurrent(ctx context.Context, coord Coordinates) (*CurrentConditions, error)
	FetchForecast(ctx context.Context, coord Coordinates, days int) (*Forecast, error)
}

// SearchProvider abstracts a forward geocoder (city name -> coordinates).
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]GeocodeResult, error)
}

// ReverseProvider abstracts a reverse geocoder (coordinates -> place name).
// An empty name with a nil error means the provider had no match.
type ReverseProvider interface {
	Name() string
	ReverseGeocode(ctx context.Context, coord Coordinates) (string, error)
}

// Chains holds the ordered provider tiers per capability. Tiers are tried in
// slice order; a fallback-eligible failure (or an empty result, for search)
// moves on to the next tier.
//
// Keyed marks the credentialed configuration: current/forecast and search use
// the keyed provider exclusively, and exhausted search tiers surface their
// last failure instead of degrading to an empty list.
type Chains struct {
	Weather []WeatherProvider
	Search  []SearchProvider
	Reverse []ReverseProvider
	Keyed   bool
}
