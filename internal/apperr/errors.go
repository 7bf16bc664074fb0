// Package apperr defines the error kinds the scanner distinguishes when deciding
// whether a failure is fatal, skippable or user-facing.
package apperr

import (
	"errors"
	"fmt"
)

// ConfigurationError is fatal at startup. The scan loop never runs with one.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// DataFetchError reports a failed or timed-out exchange call.
type DataFetchError struct {
	Op     string // e.g. "tickers", "kline"
	Symbol string // empty for whole-market calls
	Err    error
}

func (e *DataFetchError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("fetch %s for %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// TransportError reports a message that could not be delivered.
type TransportError struct {
	Destination int64
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("deliver to %d: %v", e.Destination, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports malformed subscriber input.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

func IsDataFetch(err error) bool {
	var target *DataFetchError
	return errors.As(err, &target)
}

func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
