// Package httpx provides shared JSON response helpers for HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/domain"
)

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteError maps a domain error to its HTTP status and writes
// {"error": <message>}. Unrecognized errors are internal server errors.
func WriteError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	WriteJSON(w, log, status, map[string]string{"error": err.Error()})
}

// StatusFor returns the HTTP status for a domain error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInputs):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownName):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotSupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// DecodeBody decodes a JSON request body into dst. An empty body leaves
// dst untouched so optional-field requests work without a payload.
func DecodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidInputs, err)
}
