package assistant

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a 200 response lacks fields the client depends on.
var ErrMalformedResponse = errors.New("malformed response from assistant service")

// HTTPError reports a non-200 answer from the assistant service.
type HTTPError struct {
	Op         string
	StatusCode int
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: assistant service returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: assistant service returned status %d: %s", e.Op, e.StatusCode, e.Message)
}

// UserMessage is the text shown to the user for this failure.
func (e *HTTPError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}
