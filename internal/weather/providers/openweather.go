package providers

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"weatherhub/internal/weather"
)

// OpenWeatherProvider is the keyed provider: current weather, 5-day/3-hour
// forecast, and forward/reverse geocoding, all against OpenWeatherMap.
type OpenWeatherProvider struct {
	apiKey  string
	baseURL string
	geoURL  string
	client  *client
}

func NewOpenWeatherProvider(httpClient *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5",
		geoURL:  "https://api.openweathermap.org/geo/1.0",
		client:  newClient(httpClient, "openweathermap"),
	}
}

func (p *OpenWeatherProvider) Name() string { return "openweathermap" }

func (p *OpenWeatherProvider) coordParams(coord weather.Coordinates) url.Values {
	params := url.Values{}
	params.Set("lat", formatCoord(coord.Lat))
	params.Set("lon", formatCoord(coord.Lon))
	params.Set("appid", p.apiKey)
	return params
}

type owWeatherItem struct {
	Description string `json:"description"`
	Main        string `json:"main"`
	Icon        string `json:"icon"`
}

type owCurrentPayload struct {
	Dt   *int64 `json:"dt"`
	Main struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *int     `json:"humidity"`
		Pressure  *int     `json:"pressure"`
	} `json:"main"`
	Weather []owWeatherItem `json:"weather"`
	Wind    struct {
		Speed *float64 `json:"speed"`
		Deg   *int     `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All *int `json:"all"`
	} `json:"clouds"`
	Sys struct {
		Sunrise *int64 `json:"sunrise"`
		Sunset  *int64 `json:"sunset"`
	} `json:"sys"`
	Visibility *int `json:"visibility"`
	Timezone   *int `json:"timezone"`
}

func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, coord weather.Coordinates) (*weather.CurrentConditions, error) {
	params := p.coordParams(coord)
	params.Set("units", "metric")

	var payload owCurrentPayload
	if err := p.client.getJSON(ctx, p.baseURL+"/weather", params, nil, &payload); err != nil {
		return nil, err
	}

	var first owWeatherItem
	if len(payload.Weather) > 0 {
		first = payload.Weather[0]
	}

	return &weather.CurrentConditions{
		Temperature:    payload.Main.Temp,
		FeelsLike:      payload.Main.FeelsLike,
		Humidity:       payload.Main.Humidity,
		Pressure:       payload.Main.Pressure,
		Description:    first.Description,
		Main:           first.Main,
		Icon:           first.Icon,
		WindSpeed:      payload.Wind.Speed,
		WindDirection:  payload.Wind.Deg,
		Visibility:     payload.Visibility,
		Clouds:         payload.Clouds.All,
		Sunrise:        payload.Sys.Sunrise,
		Sunset:         payload.Sys.Sunset,
		TimezoneOffset: payload.Timezone,
		ObservedAt:     payload.Dt,
	}, nil
}

type owForecastItem struct {
	Dt    *int64 `json:"dt"`
	DtTxt string `json:"dt_txt"`
	Main  struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		TempMin   *float64 `json:"temp_min"`
		TempMax   *float64 `json:"temp_max"`
		Humidity  *int     `json:"humidity"`
		Pressure  *int     `json:"pressure"`
	} `json:"main"`
	Weather []owWeatherItem `json:"weather"`
	Wind    struct {
		Speed *float64 `json:"speed"`
		Deg   *int     `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All *int `json:"all"`
	} `json:"clouds"`
}

// FetchForecast groups the 3-hourly list by calendar date. The API accepts up
// to 7 requested days but its granularity limits usable days to 5, so the day
// count is clamped to [1, 5] here.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, coord weather.Coordinates, days int) (*weather.Forecast, error) {
	params := p.coordParams(coord)
	params.Set("units", "metric")

	var payload struct {
		List []owForecastItem `json:"list"`
	}
	if err := p.client.getJSON(ctx, p.baseURL+"/forecast", params, nil, &payload); err != nil {
		return nil, err
	}

	grouped := make(map[string][]owForecastItem)
	for _, item := range payload.List {
		date := owItemDate(item)
		if date == "" {
			continue
		}
		grouped[date] = append(grouped[date], item)
	}

	dates := make([]string, 0, len(grouped))
	for d := range grouped {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	if max := weather.ClampDays(days, 5); len(dates) > max {
		dates = dates[:max]
	}

	forecast := &weather.Forecast{Days: make([]weather.DaySummary, 0, len(dates))}
	for _, date := range dates {
		items := grouped[date]
		day := weather.DaySummary{Date: date, Hours: make([]weather.HourSample, 0, len(items))}

		for _, it := range items {
			var first owWeatherItem
			if len(it.Weather) > 0 {
				first = it.Weather[0]
			}
			day.Hours = append(day.Hours, weather.HourSample{
				Timestamp:     it.Dt,
				TimestampText: it.DtTxt,
				Temperature:   it.Main.Temp,
				FeelsLike:     it.Main.FeelsLike,
				Description:   first.Description,
				Main:          first.Main,
				Icon:          first.Icon,
				WindSpeed:     it.Wind.Speed,
				WindDirection: it.Wind.Deg,
				Humidity:      it.Main.Humidity,
				Pressure:      it.Main.Pressure,
				Clouds:        it.Clouds.All,
			})

			// Daily min/max from the per-sample aggregates.
			if it.Main.TempMin != nil && (day.MinTemp == nil || *it.Main.TempMin < *day.MinTemp) {
				v := *it.Main.TempMin
				day.MinTemp = &v
			}
			if it.Main.TempMax != nil && (day.MaxTemp == nil || *it.Main.TempMax > *day.MaxTemp) {
				v := *it.Main.TempMax
				day.MaxTemp = &v
			}
		}
		forecast.Days = append(forecast.Days, day)
	}
	return forecast, nil
}

// owItemDate extracts the calendar date of a forecast sample, preferring the
// provider's "YYYY-MM-DD HH:MM:SS" text over the epoch timestamp.
func owItemDate(item owForecastItem) string {
	if len(item.DtTxt) >= 10 {
		return item.DtTxt[:10]
	}
	if item.Dt != nil {
		return time.Unix(*item.Dt, 0).UTC().Format("2006-01-02")
	}
	return ""
}

type owGeoItem struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (p *OpenWeatherProvider) Search(ctx context.Context, query string, limit int) ([]weather.GeocodeResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(weather.ClampLimit(limit)))
	params.Set("appid", p.apiKey)

	var payload []owGeoItem
	if err := p.client.getJSON(ctx, p.geoURL+"/direct", params, nil, &payload); err != nil {
		return nil, err
	}

	results := make([]weather.GeocodeResult, 0, len(payload))
	for _, item := range payload {
		results = append(results, weather.GeocodeResult{
			Name:    item.Name,
			Country: item.Country,
			State:   item.State,
			Lat:     item.Lat,
			Lon:     item.Lon,
		})
	}
	return results, nil
}

func (p *OpenWeatherProvider) ReverseGeocode(ctx context.Context, coord weather.Coordinates) (string, error) {
	params := p.coordParams(coord)
	params.Set("limit", "1")

	var payload []owGeoItem
	if err := p.client.getJSON(ctx, p.geoURL+"/reverse", params, nil, &payload); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", nil
	}
	return payload[0].Name, nil
}
