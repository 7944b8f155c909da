package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"weatherhub/internal/weather"
)

// omHourlyFields and omDailyFields are the comma-joined field lists requested
// from Open-Meteo.
var (
	omHourlyFields = strings.Join([]string{
		"temperature_2m",
		"apparent_temperature",
		"relative_humidity_2m",
		"surface_pressure",
		"weather_code",
		"wind_speed_10m",
		"wind_direction_10m",
		"visibility",
		"cloudcover",
	}, ",")
	omDailyFields = "temperature_2m_max,temperature_2m_min,sunrise,sunset"
)

// omCondition is a (description, main category, icon code) triple for one
// Open-Meteo weather code.
type omCondition struct {
	Description string
	Main        string
	Icon        string
}

// omConditions maps Open-Meteo integer weather codes to normalized condition
// triples. Unknown or absent codes fall back to clear sky.
var omConditions = map[int]omCondition{
	0:  {"clear sky", "Clear", "01d"},
	1:  {"mainly clear", "Clear", "02d"},
	2:  {"partly cloudy", "Clouds", "03d"},
	3:  {"overcast", "Clouds", "04d"},
	45: {"fog", "Fog", "50d"},
	48: {"depositing rime fog", "Fog", "50d"},
	51: {"light drizzle", "Drizzle", "09d"},
	53: {"moderate drizzle", "Drizzle", "09d"},
	55: {"dense drizzle", "Drizzle", "09d"},
	56: {"freezing drizzle", "Drizzle", "09d"},
	57: {"dense freezing drizzle", "Drizzle", "09d"},
	61: {"slight rain", "Rain", "10d"},
	63: {"moderate rain", "Rain", "10d"},
	65: {"heavy rain", "Rain", "10d"},
	66: {"light freezing rain", "Rain", "10d"},
	67: {"heavy freezing rain", "Rain", "10d"},
	71: {"slight snow fall", "Snow", "13d"},
	73: {"moderate snow fall", "Snow", "13d"},
	75: {"heavy snow fall", "Snow", "13d"},
	77: {"snow grains", "Snow", "13d"},
	80: {"slight rain showers", "Rain", "09d"},
	81: {"moderate rain showers", "Rain", "09d"},
	82: {"violent rain showers", "Rain", "09d"},
	85: {"slight snow showers", "Snow", "13d"},
	86: {"heavy snow showers", "Snow", "13d"},
	95: {"thunderstorm", "Thunderstorm", "11d"},
	96: {"thunderstorm with hail", "Thunderstorm", "11d"},
	99: {"thunderstorm with heavy hail", "Thunderstorm", "11d"},
}

func conditionForCode(code *int) omCondition {
	c := 0
	if code != nil {
		c = *code
	}
	if cond, ok := omConditions[c]; ok {
		return cond
	}
	return omCondition{"clear sky", "Clear", "01d"}
}

// omPayload mirrors the slice-of-columns shape of the Open-Meteo forecast
// response. Pointer elements keep missing samples distinguishable from zero.
type omPayload struct {
	Hourly struct {
		Time                []string   `json:"time"`
		Temperature         []*float64 `json:"temperature_2m"`
		ApparentTemperature []*float64 `json:"apparent_temperature"`
		Humidity            []*float64 `json:"relative_humidity_2m"`
		SurfacePressure     []*float64 `json:"surface_pressure"`
		WeatherCode         []*int     `json:"weather_code"`
		WindSpeed           []*float64 `json:"wind_speed_10m"`
		WindDirection       []*float64 `json:"wind_direction_10m"`
		Visibility          []*float64 `json:"visibility"`
		CloudCover          []*float64 `json:"cloudcover"`
	} `json:"hourly"`
	Daily struct {
		Time    []string   `json:"time"`
		TempMax []*float64 `json:"temperature_2m_max"`
		TempMin []*float64 `json:"temperature_2m_min"`
		Sunrise []string   `json:"sunrise"`
		Sunset  []string   `json:"sunset"`
	} `json:"daily"`
}

// OpenMeteoProvider is the no-key weather provider.
type OpenMeteoProvider struct {
	baseURL string
	client  *client
}

func NewOpenMeteoProvider(httpClient *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		baseURL: "https://api.open-meteo.com/v1/forecast",
		client:  newClient(httpClient, "openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string { return "openmeteo" }

func (p *OpenMeteoProvider) fetch(ctx context.Context, coord weather.Coordinates, days int) (*omPayload, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(coord.Lat))
	params.Set("longitude", formatCoord(coord.Lon))
	params.Set("timezone", "auto")
	params.Set("hourly", omHourlyFields)
	params.Set("daily", omDailyFields)
	params.Set("forecast_days", strconv.Itoa(weather.ClampDays(days, 7)))

	var payload omPayload
	if err := p.client.getJSON(ctx, p.baseURL, params, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchCurrent approximates current conditions from the first hourly sample of
// a one-day forecast, plus today's sunrise/sunset from the daily block.
func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, coord weather.Coordinates) (*weather.CurrentConditions, error) {
	payload, err := p.fetch(ctx, coord, 1)
	if err != nil {
		return nil, err
	}

	h := payload.Hourly
	cond := conditionForCode(intAt(h.WeatherCode, 0))

	now := time.Now().UTC().Unix()
	tzOffset := 0

	return &weather.CurrentConditions{
		Temperature:    floatAt(h.Temperature, 0),
		FeelsLike:      floatAt(h.ApparentTemperature, 0),
		Humidity:       roundedAt(h.Humidity, 0),
		Pressure:       roundedAt(h.SurfacePressure, 0),
		Description:    cond.Description,
		Main:           cond.Main,
		Icon:           cond.Icon,
		WindSpeed:      floatAt(h.WindSpeed, 0),
		WindDirection:  roundedAt(h.WindDirection, 0),
		Visibility:     roundedAt(h.Visibility, 0),
		Clouds:         roundedAt(h.CloudCover, 0),
		Sunrise:        epochAt(payload.Daily.Sunrise, 0),
		Sunset:         epochAt(payload.Daily.Sunset, 0),
		TimezoneOffset: &tzOffset,
		ObservedAt:     &now,
	}, nil
}

// FetchForecast buckets the hourly samples by the calendar date of each
// sample's own timestamp (reported in the location's local timezone) and joins
// the daily min/max aggregates by date.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, coord weather.Coordinates, days int) (*weather.Forecast, error) {
	payload, err := p.fetch(ctx, coord, days)
	if err != nil {
		return nil, err
	}

	h := payload.Hourly

	// Hourly times arrive chronologically, so insertion order is date order.
	var dates []string
	byDate := make(map[string][]int)
	for i, raw := range h.Time {
		ts, parseErr := parseLocalTime(raw)
		if parseErr != nil {
			continue
		}
		date := ts.Format("2006-01-02")
		if _, seen := byDate[date]; !seen {
			dates = append(dates, date)
		}
		byDate[date] = append(byDate[date], i)
	}

	dailyIndex := make(map[string]int, len(payload.Daily.Time))
	for i, d := range payload.Daily.Time {
		if len(d) >= 10 {
			dailyIndex[d[:10]] = i
		}
	}

	forecast := &weather.Forecast{Days: make([]weather.DaySummary, 0, len(dates))}
	for _, date := range dates {
		idxs := byDate[date]
		hours := make([]weather.HourSample, 0, len(idxs))
		for _, i := range idxs {
			cond := conditionForCode(intAt(h.WeatherCode, i))
			hours = append(hours, weather.HourSample{
				Timestamp:     epochAt(h.Time, i),
				TimestampText: h.Time[i],
				Temperature:   floatAt(h.Temperature, i),
				FeelsLike:     floatAt(h.ApparentTemperature, i),
				Description:   cond.Description,
				Main:          cond.Main,
				Icon:          cond.Icon,
				WindSpeed:     floatAt(h.WindSpeed, i),
				WindDirection: roundedAt(h.WindDirection, i),
				Humidity:      roundedAt(h.Humidity, i),
				Pressure:      roundedAt(h.SurfacePressure, i),
				Clouds:        roundedAt(h.CloudCover, i),
			})
		}

		day := weather.DaySummary{Date: date, Hours: hours}
		if di, ok := dailyIndex[date]; ok {
			day.MinTemp = floatAt(payload.Daily.TempMin, di)
			day.MaxTemp = floatAt(payload.Daily.TempMax, di)
		}
		forecast.Days = append(forecast.Days, day)
	}
	return forecast, nil
}

// OpenMeteoGeocoder is the no-key forward/reverse geocoding provider.
type OpenMeteoGeocoder struct {
	searchURL  string
	reverseURL string
	client     *client
}

func NewOpenMeteoGeocoder(httpClient *http.Client) *OpenMeteoGeocoder {
	return &OpenMeteoGeocoder{
		searchURL:  "https://geocoding-api.open-meteo.com/v1/search",
		reverseURL: "https://geocoding-api.open-meteo.com/v1/reverse",
		client:     newClient(httpClient, "openmeteo-geocoding"),
	}
}

func (g *OpenMeteoGeocoder) Name() string { return "openmeteo-geocoding" }

type omGeoPayload struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

func (g *OpenMeteoGeocoder) Search(ctx context.Context, query string, limit int) ([]weather.GeocodeResult, error) {
	limit = weather.ClampLimit(limit)

	params := url.Values{}
	params.Set("name", query)
	params.Set("count", strconv.Itoa(limit))
	params.Set("language", "en")
	params.Set("format", "json")

	var payload omGeoPayload
	if err := g.client.getJSON(ctx, g.searchURL, params, nil, &payload); err != nil {
		return nil, err
	}

	results := make([]weather.GeocodeResult, 0, len(payload.Results))
	for _, item := range payload.Results {
		results = append(results, weather.GeocodeResult{
			Name:    item.Name,
			Country: item.Country,
			State:   item.Admin1,
			Lat:     item.Latitude,
			Lon:     item.Longitude,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (g *OpenMeteoGeocoder) ReverseGeocode(ctx context.Context, coord weather.Coordinates) (string, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(coord.Lat))
	params.Set("longitude", formatCoord(coord.Lon))
	params.Set("language", "en")
	params.Set("format", "json")

	var payload omGeoPayload
	if err := g.client.getJSON(ctx, g.reverseURL, params, nil, &payload); err != nil {
		return "", err
	}
	if len(payload.Results) == 0 {
		return "", nil
	}
	return payload.Results[0].Name, nil
}

// parseLocalTime parses Open-Meteo ISO timestamps, which come without a zone
// suffix when timezone=auto is requested.
func parseLocalTime(s string) (time.Time, error) {
	s = strings.Replace(s, "Z", "+00:00", 1)
	for _, layout := range []string{
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02T15:04-07:00",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: "2006-01-02T15:04", Value: s}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// floatAt defensively reads arr[i]; out of range or null yields nil.
func floatAt(arr []*float64, i int) *float64 {
	if i < 0 || i >= len(arr) || arr[i] == nil {
		return nil
	}
	v := *arr[i]
	return &v
}

// roundedAt reads arr[i] as an integer field.
func roundedAt(arr []*float64, i int) *int {
	if i < 0 || i >= len(arr) || arr[i] == nil {
		return nil
	}
	v := int(*arr[i])
	return &v
}

func intAt(arr []*int, i int) *int {
	if i < 0 || i >= len(arr) || arr[i] == nil {
		return nil
	}
	v := *arr[i]
	return &v
}

// epochAt parses arr[i] as a timestamp and returns epoch seconds, nil when the
// slot is absent or unparseable.
func epochAt(arr []string, i int) *int64 {
	if i < 0 || i >= len(arr) || arr[i] == "" {
		return nil
	}
	ts, err := parseLocalTime(arr[i])
	if err != nil {
		return nil
	}
	epoch := ts.Unix()
	return &epoch
}
