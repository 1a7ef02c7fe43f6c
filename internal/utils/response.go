package utils

import (
	"encoding/json"
	"net/http"
)

// JSONResponse sends a JSON response with the given status and body.
func JSONResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSONError sends a structured error with a stable status and message.
// Internal error details are logged upstream, never exposed here.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSONResponse(w, status, ErrorBody{Error: message})
}
