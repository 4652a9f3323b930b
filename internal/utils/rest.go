package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the inner object of an error envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// RespondWithError sends an error envelope with the given status and error type
func RespondWithError(w http.ResponseWriter, code int, errType, message string) {
	_ = RespondWithJSON(w, code, ErrorResponse{Error: ErrorBody{Message: message, Type: errType, Code: code}})
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return err
	}
	return nil
}
