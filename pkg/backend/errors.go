package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method string
	Path   string
	Status int

	// Detail is the "detail" field of the error body when it is a string.
	// Validation errors carry a list there and leave Detail empty.
	Detail string
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, Status: status}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Detail) > 0 {
		var detail string
		if json.Unmarshal(payload.Detail, &detail) == nil {
			e.Detail = strings.TrimSpace(detail)
		}
	}
	return e
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// UserMessage returns the backend's detail text, which is written for the
// user. It is empty when the backend sent none.
func (e *APIError) UserMessage() string { return e.Detail }
