// Package httpx provides HTTP response utilities for the public API
// envelope: {"data": ...} on success, {"data": null, "error": {...}} on
// failure.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error object carried by the response envelope.
type ErrorBody struct {
	Status  int            `json:"status"`
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// Envelope wraps every API response.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error,omitempty"`
}

// Data sends a success envelope with the given status code.
func Data(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data})
}

// Fail sends an error envelope.
func Fail(w http.ResponseWriter, status int, name, message string) {
	writeJSON(w, status, Envelope{
		Data: nil,
		Error: &ErrorBody{
			Status:  status,
			Name:    name,
			Message: message,
			Details: map[string]any{},
		},
	})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
