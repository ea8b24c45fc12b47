package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Fetch errors.
var (
	ErrStatus  = errors.New("unexpected response status")
	ErrDecode  = errors.New("malformed response body")
	ErrEncode  = errors.New("cannot encode request body")
	ErrBaseURL = errors.New("invalid base URL")
)

//go:generate mockery

// Fetcher performs JSON requests against the remote API.
// Paths are endpoint paths such as "/me"; implementations add any prefix.
type Fetcher interface {
	// Get issues a GET request and decodes the JSON response into out.
	// A nil out discards the body. An empty or null body leaves out untouched.
	Get(ctx context.Context, path string, out any) error

	// Post issues a POST request with body encoded as JSON and decodes the
	// response into out (nil discards it).
	Post(ctx context.Context, path string, body any, out any) error
}

// StatusError is returned when the remote answers with a non-2xx status.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
}

// Unwrap lets errors.Is(err, ErrStatus) match.
func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Temporary reports whether the status is worth retrying (5xx or 429).
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
