package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"weatherhub/internal/weather"
)

// NominatimGeocoder is the tertiary search fallback: the OpenStreetMap
// Nominatim geocoder, which requires a distinguishing User-Agent but no key.
type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	client    *client
}

func NewNominatimGeocoder(httpClient *http.Client, userAgent string) *NominatimGeocoder {
	return &NominatimGeocoder{
		baseURL:   "https://nominatim.openstreetmap.org/search",
		userAgent: userAgent,
		client:    newClient(httpClient, "nominatim"),
	}
}

func (g *NominatimGeocoder) Name() string { return "nominatim" }

type nominatimItem struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
		State       string `json:"state"`
		Region      string `json:"region"`
	} `json:"address"`
}

// Search queries Nominatim. Countries come back uppercased (an ISO-ish code or
// an uppercased full name), unlike the primary no-key geocoder's full names.
func (g *NominatimGeocoder) Search(ctx context.Context, query string, limit int) ([]weather.GeocodeResult, error) {
	limit = weather.ClampLimit(limit)

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))

	header := http.Header{}
	header.Set("User-Agent", g.userAgent)

	var payload []nominatimItem
	if err := g.client.getJSON(ctx, g.baseURL, params, header, &payload); err != nil {
		return nil, err
	}

	results := make([]weather.GeocodeResult, 0, len(payload))
	for _, item := range payload {
		name := item.Name
		if name == "" {
			name = strings.SplitN(item.DisplayName, ",", 2)[0]
		}
		lat, latErr := strconv.ParseFloat(item.Lat, 64)
		lon, lonErr := strconv.ParseFloat(item.Lon, 64)
		if name == "" || latErr != nil || lonErr != nil {
			continue
		}

		country := item.Address.Country
		if country == "" {
			country = item.Address.CountryCode
		}
		state := item.Address.State
		if state == "" {
			state = item.Address.Region
		}

		results = append(results, weather.GeocodeResult{
			Name:    name,
			Country: strings.ToUpper(country),
			State:   state,
			Lat:     lat,
			Lon:     lon,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
