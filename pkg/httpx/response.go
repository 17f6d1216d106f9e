package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/nicktill/dimcluster/pkg/codec"
)

// RespondJSON writes a JSON response with the given status code and data.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`

	// Kind names the failing decode stage (json, rows, dimensions, settings)
	Kind string `json:"kind,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes an error response with the given status code and error message.
// Decode errors carry their stage in Kind.
func RespondError(w http.ResponseWriter, status int, err error) {
	response := ErrorResponse{
		Error:     http.StatusText(status),
		Message:   err.Error(),
		RequestID: w.Header().Get(RequestIDHeader),
	}

	var decodeErr *codec.DecodeError
	if errors.As(err, &decodeErr) {
		response.Kind = decodeErr.Stage
	}

	RespondJSON(w, status, response)
}

// RespondErrorString writes an error response with the given status code and error message string.
func RespondErrorString(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		RequestID: w.Header().Get(RequestIDHeader),
	}
	RespondJSON(w, status, response)
}
