// Package httputil provides shared HTTP response helpers for the gateway.
package httputil

import (
	"encoding/json"
	"net/http"
)

// XMLContentType is used for raw XML responses.
const XMLContentType = "application/xml; charset=utf-8"

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteXML writes a raw XML body.
func WriteXML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", XMLContentType)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, ErrorResponse{Error: errCode, Message: message})
}

// WriteErrorWithDetails writes a JSON error response carrying details, such
// as a decoded SOAP fault.
func WriteErrorWithDetails(w http.ResponseWriter, status int, errCode, message string, details any) {
	WriteJSON(w, status, ErrorResponse{Error: errCode, Message: message, Details: details})
}

// WriteOK writes a 200 OK response with data.
func WriteOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}
