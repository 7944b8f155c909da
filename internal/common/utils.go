package common

import (
	"fmt"
	"math"
	"strings"
)

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// WindDirectionLabel converts wind direction in degrees to a 16-wind compass
// label. NaN or infinite input defaults to "N".
func WindDirectionLabel(degrees float64) string {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return "N"
	}
	deg := math.Mod(degrees, 360)
	if deg < 0 {
		deg += 360
	}
	idx := int((deg+11.25)/22.5) % 16
	return compassPoints[idx]
}

var iconNames = map[string]string{
	"01d": "clear-day", "01n": "clear-night",
	"02d": "partly-cloudy-day", "02n": "partly-cloudy-night",
	"03d": "cloudy", "03n": "cloudy",
	"04d": "overcast", "04n": "overcast",
	"09d": "showers", "09n": "showers",
	"10d": "rain", "10n": "rain",
	"11d": "thunderstorm", "11n": "thunderstorm",
	"13d": "snow", "13n": "snow",
	"50d": "mist", "50n": "mist",
}

// WeatherIconName maps provider icon codes to the descriptive names the
// frontend uses ('01d' -> 'clear-day'). Unknown codes pass through unchanged.
func WeatherIconName(iconCode string) string {
	code := strings.TrimSpace(iconCode)
	if name, ok := iconNames[code]; ok {
		return name
	}
	return code
}

// CelsiusToFahrenheit converts a Celsius temperature to Fahrenheit.
func CelsiusToFahrenheit(tempC float64) float64 {
	return tempC*9.0/5.0 + 32.0
}

// HeatIndexC approximates the feels-like temperature in Celsius using the
// Rothfusz regression (computed in Fahrenheit, converted back), rounded to
// two decimal places.
func HeatIndexC(tempC, humidity float64) float64 {
	tf := CelsiusToFahrenheit(tempC)
	rh := humidity
	hiF := -42.379 + 2.04901523*tf + 10.14333127*rh -
		0.22475541*tf*rh - 0.00683783*tf*tf -
		0.05481717*rh*rh + 0.00122874*tf*tf*rh +
		0.00085282*tf*rh*rh - 0.00000199*tf*tf*rh*rh
	hiC := (hiF - 32.0) * 5.0 / 9.0
	return math.Round(hiC*100) / 100
}

// HumanizeAgeMinutes converts a cache age in whole minutes into the phrase
// the API reports: "just now", "1 minute", "N minutes", "1 hour", "N hours".
func HumanizeAgeMinutes(minutes int) string {
	if minutes < 1 {
		return "just now"
	}
	if minutes == 1 {
		return "1 minute"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
