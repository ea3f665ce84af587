package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError logs the failed request and writes a JSON error.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	requestID := middleware.GetReqID(r.Context())

	slog.Debug("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"request_id", requestID,
	)

	writeJSON(w, status, ErrorResponse{Error: message, RequestID: requestID})
}
