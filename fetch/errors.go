package fetch

import "fmt"

// Reason classifies why a fetch failed.
type Reason string

const (
	// ReasonConnection covers failures before any status was received:
	// DNS, refused connections, resets and timeouts.
	ReasonConnection Reason = "connection"
	// ReasonHTTPStatus means the server answered with a non-2xx status.
	ReasonHTTPStatus Reason = "http_status"
	// ReasonRequest means the request could not be built.
	ReasonRequest Reason = "request"
)

// RecoverableError is returned for every failed fetch. It is scoped to a
// single page and never meant to stop a batch.
type RecoverableError struct {
	Reason Reason
	Code   int
	Method string
	URL    string
	Err    error
}

func (e *RecoverableError) Error() string {
	switch e.Reason {
	case ReasonHTTPStatus:
		return fmt.Sprintf("HTTP %d for %s %s", e.Code, e.Method, e.URL)
	case ReasonConnection:
		return fmt.Sprintf("connection error for %s %s: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("failed to build request for %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RecoverableError) Unwrap() error {
	return e.Err
}
