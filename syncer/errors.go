package syncer

import "fmt"

// AuthError means the current sync attempt cannot authenticate: missing
// credentials, a rejected refresh, or an unparsable token. Fatal for the
// run; the next run retries the refresh from scratch.
type AuthError struct {
	StatusCode int
	Msg        string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth failed (%d): %s", e.StatusCode, e.Msg)
	}
	return "auth failed: " + e.Msg
}

// TransportError wraps a network-level failure on either endpoint.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is a non-2xx response from the listing endpoint.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// DataShapeError is a 200 response whose body is not the expected
// non-empty list. The page loop treats it as normal termination, not a
// crash.
type DataShapeError struct {
	Msg string
}

func (e *DataShapeError) Error() string {
	return "unexpected response shape: " + e.Msg
}
