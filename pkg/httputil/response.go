// Package httputil provides HTTP handler utilities for consistent
// response envelopes and JSON encoding.
package httputil

import (
	"encoding/json"
	"net/http"
	"time"
)

// SuccessResponse is the envelope for successful API responses
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope for error API responses
type ErrorResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	ErrorCode string     `json:"error_code"`
	RequestID string     `json:"request_id,omitempty"`
	Timestamp string     `json:"timestamp"`
	Debug     *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo carries diagnostic detail, attached to error responses
// only when debug display is enabled.
type DebugInfo struct {
	Error    string `json:"error"`
	Type     string `json:"type"`
	Location string `json:"location,omitempty"`
	Trace    string `json:"trace,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful response (200 OK) wrapped in the
// success envelope
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// WriteCreated writes a successful creation response (201 Created)
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Success: true, Data: data})
}

// WriteSuccessMessage writes a success envelope with a message
func WriteSuccessMessage(w http.ResponseWriter, message string, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: message, Data: data})
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteErrorEnvelope writes the standard error envelope with the given
// status, message, code and request id.
func WriteErrorEnvelope(w http.ResponseWriter, status int, message, code, requestID string, debug *DebugInfo) error {
	return WriteJSON(w, status, ErrorResponse{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Debug:     debug,
	})
}
