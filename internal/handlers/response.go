package handlers

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes a standardised JSON error response. The request ID is
// echoed in the body when known so clients can quote it.
func WriteError(w http.ResponseWriter, status int, msg, requestID string) {
	body := map[string]string{
		"error": msg,
	}
	if requestID != "" {
		body["request_id"] = requestID
	}
	WriteJSON(w, status, body)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
