package api

import "fmt"

// StatusError reports an unexpected HTTP status from a custodian
// endpoint. It includes both the status code and the response body.
type StatusError struct {
	// StatusCode is the HTTP status code the custodian returned.
	StatusCode int

	// Body is the response body, truncated for logging.
	Body string
}

// Error formats the status code and body.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("custodian returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("custodian returned status %d: %s", e.StatusCode, e.Body)
}

// NewStatusError builds a StatusError, truncating long response bodies.
func NewStatusError(statusCode int, body []byte) *StatusError {
	const limit = 512
	if len(body) > limit {
		return &StatusError{StatusCode: statusCode, Body: string(body[:limit]) + "..."}
	}
	return &StatusError{StatusCode: statusCode, Body: string(body)}
}
