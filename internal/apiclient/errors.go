package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response of the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 response
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Message returns the server's message when err is an *APIError, else err.Error()
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// maxMessageRunes caps plain-text error bodies shown to the user
const maxMessageRunes = 200

// newAPIError extracts a message from a JSON body ("message", "error" or "detail"),
// falling back to the body text and then to the status text
func newAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Message: extractMessage(status, body)}
}

func extractMessage(status int, body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		if runes := []rune(text); len(runes) > maxMessageRunes {
			text = string(runes[:maxMessageRunes])
		}
		return text
	}

	if st := http.StatusText(status); st != "" {
		return st
	}
	return fmt.Sprintf("status %d", status)
}
