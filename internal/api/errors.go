// Package api provides the HTTP client for the romdeck download server.
package api

import (
	"errors"
	"fmt"
	nethttp "net/http"
)

// RequestError is a non-success response from the server. The server wraps
// failure details in a FastAPI-style {"detail": "..."} body.
type RequestError struct {
	StatusCode int
	Detail     string
}

func (e *RequestError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound checks whether an error is a 404 response, e.g. a games list
// request for an unknown platform or a redownload for a URL not in history.
func IsNotFound(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == nethttp.StatusNotFound
}

// IsUnauthorized checks whether an error is a 401 response (bad or missing
// API key).
func IsUnauthorized(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == nethttp.StatusUnauthorized
}
