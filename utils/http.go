package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a client with a per-request timeout. No retry
// behavior: a failed call terminates the current sync run and callers
// wrap sync invocations with their own retry policy if they want one.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}
