package weather

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed marks any failure to obtain data from the provider
	ErrFetchFailed = errors.New("weather fetch failed")
	// ErrLocationNotFound is returned when the provider does not know the location
	ErrLocationNotFound = errors.New("location not found")
	// ErrLocationRequired is returned for an empty location query
	ErrLocationRequired = errors.New("location is required")
	// ErrUnauthorized is returned when the provider rejects the API key
	ErrUnauthorized = errors.New("weather provider rejected credentials")
)

// FetchError describes a failed provider call. It wraps ErrFetchFailed and,
// when applicable, a more specific sentinel.
type FetchError struct {
	Op         string // "current" or "forecast"
	Location   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("weather %s for %q: status %d: %v", e.Op, e.Location, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("weather %s for %q: %v", e.Op, e.Location, e.Err)
}

// Unwrap exposes both ErrFetchFailed and the underlying cause
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// DayForecast summarises one day of the forecast
type DayForecast struct {
	Date          string `json:"date"` // YYYY-MM-DD
	Day           string `json:"day"`  // Mon, Tue, ...
	High          int    `json:"high"`
	Low           int    `json:"low"`
	Condition     string `json:"condition"`
	Icon          string `json:"icon,omitempty"`
	Precipitation int    `json:"precipitation"`
}

// Snapshot is everything fetched for one location query
type Snapshot struct {
	Reading  Reading       `json:"reading"`
	Forecast []DayForecast `json:"forecast"`
}

// Provider fetches weather data for a free-text location such as "Fresno, CA".
// Implementations make exactly one upstream attempt per call and never retry.
type Provider interface {
	Fetch(ctx context.Context, location string) (Snapshot, error)
}
