// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/apportal/apportal/internal/middleware"
)

// envelope is the response shape every endpoint emits: a human-readable
// message plus an optional payload. Exactly one envelope per request.
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Handler wraps the top-level endpoints that need no dependencies.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello is a simple info endpoint.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Message: "Application portal API"})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeMessage writes an envelope with no payload.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Message: message})
}

// writeData writes an envelope carrying a payload.
func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Message: message, Data: data})
}

// internalError writes the generic 500 envelope. Error details stay in the
// logs; clients get a fixed message.
func internalError(w http.ResponseWriter) {
	writeMessage(w, http.StatusInternalServerError, "Something went wrong")
}

// requestID pulls the correlation ID injected by the middleware.
func requestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}
