package chat

import (
	"context"
	"errors"

	"github.com/greenhaven/assistant-chat/internal/service/assistant"
)

// UserMessage turns a failed operation into the line shown to the user.
// Upstream failures surface the assistant service's own text.
func UserMessage(err error) string {
	var httpErr *assistant.HTTPError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &httpErr):
		return httpErr.UserMessage()
	case errors.Is(err, ErrNotAuthenticated):
		return "Please log in first."
	case errors.Is(err, ErrEmptyMessage):
		return "Type a message first."
	case errors.Is(err, ErrSessionNotFound):
		return "Your session has expired. Reload the page."
	case errors.Is(err, assistant.ErrMalformedResponse):
		return "The assistant service sent an unexpected response."
	case errors.Is(err, context.DeadlineExceeded):
		return "The assistant service did not answer in time."
	default:
		return "Could not reach the assistant service."
	}
}

// Rejected reports whether err stopped SendMessage before the user entry was
// recorded. Any other failure leaves the user entry in the transcript.
func Rejected(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrEmptyMessage)
}
