package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrProductNotFound is returned when an external search completes with no products
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrServiceUnavailable is returned when every search strategy is exhausted or short-circuited
	ErrServiceUnavailable = errors.New("retailer search temporarily unavailable")

	// ErrUpstream is returned when a single retailer API call fails
	ErrUpstream = errors.New("retailer API request failed")

	// ErrCircuitOpen is returned when a strategy is short-circuited without attempting I/O
	ErrCircuitOpen = errors.New("circuit open")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnknownRetailer is returned when no fee schedule exists for a retailer key
	ErrUnknownRetailer = errors.New("unknown retailer")
)

// UpstreamError is a retailer API failure with the HTTP status attached
type UpstreamError struct {
	Status int
	Op     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v: status %d", e.Op, ErrUpstream, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// UnavailableError reports which strategy circuits are degraded and the
// minimum time until one of them allows another attempt
type UnavailableError struct {
	Circuits   []CircuitStatus
	RetryAfter time.Duration
}

func (e *UnavailableError) Error() string {
	open := 0
	for _, c := range e.Circuits {
		if c.Open {
			open++
		}
	}
	return fmt.Sprintf("%v: %d circuit(s) open, retry after %s", ErrServiceUnavailable, open, e.RetryAfter)
}

func (e *UnavailableError) Unwrap() error {
	return ErrServiceUnavailable
}
