package httpinvoke

import (
	"fmt"
)

// HTTPStatusError is returned when a request completes with a status outside of the 2xx range
type HTTPStatusError struct {
	Method     string
	URL        string
	StatusCode int
	Reason     string
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("failed to process %s %s and got status: %d %s", e.Method, e.URL, e.StatusCode, e.Reason)
}

// RedirectLoopError is returned when a request is redirected more than once
type RedirectLoopError struct {
	URL        string
	StatusCode int
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("failed to process %s: redirected again with status %d after already following a redirect", e.URL, e.StatusCode)
}

// MissingLocationError is returned when a redirect response has no Location header
type MissingLocationError struct {
	URL        string
	StatusCode int
}

func (e *MissingLocationError) Error() string {
	return fmt.Sprintf("failed to process %s and got status: %d but no location header", e.URL, e.StatusCode)
}
