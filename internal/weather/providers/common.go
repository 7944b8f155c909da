package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"weatherhub/internal/weather"
)

// credentialParams are query keys whose values must never reach the logs.
var credentialParams = map[string]bool{
	"appid": true,
	"key":   true,
}

// client issues one HTTP GET per call through a circuit breaker and translates
// the outcome into the typed failure taxonomy. No retries: a single attempt is
// made per provider per request; fallback across providers is the only
// multi-attempt behavior.
type client struct {
	name    string
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
}

func newClient(httpClient *http.Client, name string) *client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &client{
		name:    name,
		http:    httpClient,
		circuit: cb,
	}
}

// getJSON performs the GET and decodes a 200 body into out. A malformed 200
// body is treated as an empty object, not an error, so out is left at its
// zero value.
func (c *client) getJSON(ctx context.Context, rawURL string, params url.Values, header http.Header, out any) error {
	u := rawURL
	if len(params) > 0 {
		u = fmt.Sprintf("%s?%s", rawURL, params.Encode())
	}
	log.Printf("DEBUG: GET %s params=%s", rawURL, redactParams(params))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, execErr := c.http.Do(req)
		if execErr != nil {
			return nil, fmt.Errorf("%w: %v", weather.ErrNetwork, execErr)
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("%w: %v", weather.ErrNetwork, readErr)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, fmt.Errorf("%s: %w", c.name, weather.ErrInvalidCredentials)
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("%s: %w", c.name, weather.ErrRateLimited)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, &weather.ProviderError{
				Provider: c.name,
				Status:   resp.StatusCode,
				Message:  upstreamMessage(body, resp.StatusCode),
			}
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// An open breaker behaves like an unreachable provider.
			return fmt.Errorf("%w: circuit breaker open for %s", weather.ErrNetwork, c.name)
		}
		return err
	}

	body, ok := result.([]byte)
	if !ok {
		return fmt.Errorf("unexpected result type from circuit breaker")
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Printf("DEBUG: %s returned a non-JSON 200 body; treating as empty", c.name)
	}
	return nil
}

// upstreamMessage extracts the error text from a non-2xx body: the JSON
// "message" or "error" field when present, the raw body otherwise.
func upstreamMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}

// redactParams replaces credential values so request parameters can be logged.
func redactParams(params url.Values) string {
	if len(params) == 0 {
		return "{}"
	}
	safe := url.Values{}
	for k, vs := range params {
		if credentialParams[k] {
			safe.Set(k, "***")
			continue
		}
		for _, v := range vs {
			safe.Add(k, v)
		}
	}
	return safe.Encode()
}
