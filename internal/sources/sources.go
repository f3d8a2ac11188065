// Package sources defines the contracts of the sensor and weather
// collaborators the dashboard pulls from.
package sources

import (
	"context"
	"errors"

	"github.com/LeonardoBeccarini/agrisense/internal/model/entities"
)

// ErrDataUnavailable is wrapped by every source failure: transport errors,
// bad status codes, undecodable bodies and empty feeds. Callers recover by
// evaluating an empty window.
var ErrDataUnavailable = errors.New("data unavailable")

// ReadingSource returns up to windowSize readings, oldest first.
type ReadingSource interface {
	FetchReadings(ctx context.Context, windowSize int) ([]entities.Reading, error)
}

// WeatherSource returns current conditions plus forecast for a coordinate.
type WeatherSource interface {
	Snapshot(ctx context.Context, lat, lon float64) (*entities.WeatherSnapshot, error)
}

// Unavailable wraps err so that errors.Is(err, ErrDataUnavailable) holds.
func Unavailable(source string, err error) error {
	if err == nil {
		return &unavailableError{source: source}
	}
	return &unavailableError{source: source, err: err}
}

type unavailableError struct {
	source string
	err    error
}

func (e *unavailableError) Error() string {
	if e.err == nil {
		return e.source + ": " + ErrDataUnavailable.Error()
	}
	return e.source + ": " + ErrDataUnavailable.Error() + ": " + e.err.Error()
}

func (e *unavailableError) Unwrap() []error {
	if e.err == nil {
		return []error{ErrDataUnavailable}
	}
	return []error{ErrDataUnavailable, e.err}
}
