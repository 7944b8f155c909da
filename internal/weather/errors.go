package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when an upstream rejects the API key (401).
	ErrInvalidCredentials = errors.New("invalid or missing provider API key")

	// ErrRateLimited is returned when an upstream throttles the request (429).
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrNetwork is returned on timeouts and transport-level failures.
	ErrNetwork = errors.New("network error calling provider")
)

// ProviderError is any other non-success upstream response, carrying the
// upstream message (or raw body text) for diagnostics.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: upstream error (HTTP %d): %s", e.Provider, e.Status, e.Message)
}

// fallbackEligible reports whether a tier failure may trigger the next tier.
// Auth rejections and throttling always propagate; provider and network
// failures are swallowed when a further tier exists.
func fallbackEligible(err error) bool {
	return !errors.Is(err, ErrInvalidCredentials) && !errors.Is(err, ErrRateLimited)
}
