package waterfee

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	ErrTokensUnavailable = errors.New("form tokens unavailable")
	ErrDataListNotFound  = errors.New("data list not found")
)

// StatusError is returned when the site answers with a non-2xx status.
type StatusError struct {
	Method     string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %s", e.Method, e.Status)
}

// error codes surfaced to the host
const (
	CodeConnection = "connection_error"
	CodeTimeout    = "timeout_error"
	CodeUnknown    = "unknown_error"
)

// ErrorCode classifies a failed fetch, it returns "" for a nil error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}

	var statusErr *StatusError
	var urlErr *url.Error
	if errors.As(err, &statusErr) || errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return CodeConnection
	}
	return CodeUnknown
}
