// Package httputil holds shared HTTP response helpers. Every handler writes
// its JSON through these so the envelope shape stays uniform and internal
// errors never leak to clients.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/pauljasperdev/gemhog/internal/pkg/logger"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("response encode failed", "err", err.Error())
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes a JSON error response. Use for client errors (4xx).
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// InternalError writes a 500 error. The real error is logged; the client
// only ever sees a generic message.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("internal error", "err", err.Error())
	Error(w, http.StatusInternalServerError, "Something went wrong")
}
