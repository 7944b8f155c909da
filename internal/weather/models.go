package weather

import (
	"fmt"
)

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the coordinate ranges before any provider call is made.
func (c Coordinates) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude out of range [-90, 90]")
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude out of range [-180, 180]")
	}
	return nil
}

// Label renders the coordinates as a short "lat,lon" text, 2 decimal places.
func (c Coordinates) Label() string {
	return fmt.Sprintf("%.2f,%.2f", c.Lat, c.Lon)
}

// CurrentConditions is the normalized current-weather record. Every scalar is
// independently nullable: a field missing upstream surfaces as JSON null in
// that slot, never as zero and never as an error.
type CurrentConditions struct {
	Temperature    *float64 `json:"temperature"`
	FeelsLike      *float64 `json:"feels_like"`
	Humidity       *int     `json:"humidity"`
	Pressure       *int     `json:"pressure"`
	Description    string   `json:"weather"`
	Main           string   `json:"weather_main"`
	Icon           string   `json:"icon"`
	WindSpeed      *float64 `json:"wind_speed"`
	WindDirection  *int     `json:"wind_direction"`
	Visibility     *int     `json:"visibility"`
	Clouds         *int     `json:"clouds"`
	Sunrise        *int64   `json:"sunrise"`
	Sunset         *int64   `json:"sunset"`
	TimezoneOffset *int     `json:"timezone"`
	ObservedAt     *int64   `json:"dt"`
}

// HourSample is one normalized forecast sample within a day.
type HourSample struct {
	Timestamp     *int64   `json:"dt"`
	TimestampText string   `json:"dt_txt"`
	Temperature   *float64 `json:"temperature"`
	FeelsLike     *float64 `json:"feels_like"`
	Description   string   `json:"weather"`
	Main          string   `json:"weather_main"`
	Icon          string   `json:"icon"`
	WindSpeed     *float64 `json:"wind_speed"`
	WindDirection *int     `json:"wind_direction"`
	Humidity      *int     `json:"humidity"`
	Pressure      *int     `json:"pressure"`
	Clouds        *int     `json:"clouds"`
}

// DaySummary groups the forecast samples that fall on one calendar date.
type DaySummary struct {
	Date    string       `json:"date"`
	MinTemp *float64     `json:"min_temp"`
	MaxTemp *float64     `json:"max_temp"`
	Hours   []HourSample `json:"hours"`
}

// Forecast is an ordered sequence of day summaries, earliest date first.
type Forecast struct {
	Days []DaySummary `json:"days"`
}

// GeocodeResult is a normalized forward-geocoding match. Country is passed
// through as the tier reports it (full name or ISO-ish code); callers must not
// assume a consistent representation across fallback tiers.
type GeocodeResult struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// ClampDays bounds a requested forecast day count to [1, max].
func ClampDays(days, max int) int {
	if days < 1 {
		return 1
	}
	if days > max {
		return max
	}
	return days
}

// ClampLimit bounds a search result limit to [1, 10] regardless of provider.
func ClampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 10 {
		return 10
	}
	return limit
}
