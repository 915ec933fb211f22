package v2board

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
)

// RequestError is returned when the backend answered with a non-2xx status.
type RequestError struct {
	StatusCode int
	Message    string
	Errors     map[string][]string
	Body       []byte
}

func (e *RequestError) Error() string {
	if len(e.Message) > 0 {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// IsUnauthorized reports whether the backend rejected the bearer token.
func (e *RequestError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func newRequestError(statusCode int, body []byte) *RequestError {
	reqErr := &RequestError{
		StatusCode: statusCode,
		Body:       body,
	}

	var parsed struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}

	if err := json.Unmarshal(body, &parsed); err == nil {
		reqErr.Message = parsed.Message
		reqErr.Errors = parsed.Errors
	}

	// Validation failures put the useful text in the errors map. Fields are
	// visited in name order so the same body always yields the same message.
	if len(reqErr.Message) == 0 {
		for _, field := range slices.Sorted(maps.Keys(reqErr.Errors)) {
			if messages := reqErr.Errors[field]; len(messages) > 0 {
				reqErr.Message = messages[0]
				break
			}
		}
	}

	return reqErr
}

// TransportError is returned when no response was received at all.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
