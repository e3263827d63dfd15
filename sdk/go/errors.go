package readtrack

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents an error envelope returned by the ReadTrack API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Path       string `json:"path"`
	Timestamp  string `json:"timestamp"`
	// Stack is only present when the server runs in development mode.
	Stack string `json:"stack,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("readtrack: API error %d: %s", e.StatusCode, e.Message)
}

// NotFound reports whether the API answered 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func parseAPIError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}
	var env struct {
		Status string `json:"status"`
		*APIError
	}
	env.APIError = apiErr
	if err := json.Unmarshal(body, &env); err == nil && env.Status == "error" {
		return apiErr
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    string(body),
	}
}

// IsAPIError checks whether err is an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
