package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers network failures and non-success HTTP statuses.
	ErrTransport = errors.New("transport error")
	// ErrInvalidResponse marks a body that is malformed or lacks required data.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrNoData marks a legitimate empty result on the first page.
	ErrNoData = errors.New("no data")
)

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrTransport }

// Transport wraps err as a transport failure.
func Transport(err error) error {
	if err == nil || errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// Invalid builds an invalid-response error.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidResponse, fmt.Sprintf(format, args...))
}

// NoData builds a no-data error for symbol.
func NoData(symbol string) error {
	return fmt.Errorf("%w for %s", ErrNoData, symbol)
}
