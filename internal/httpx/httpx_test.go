package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlab/volguard/internal/domain"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(domain.ErrInvalidInputs))
	assert.Equal(t, http.StatusNotFound, StatusFor(domain.ErrUnknownName))
	assert.Equal(t, http.StatusNotImplemented, StatusFor(domain.ErrNotSupported))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(domain.ErrProviderUnavailable))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))

	// Wrapped errors keep their taxonomy mapping.
	wrapped := fmt.Errorf("%w: strategy nope", domain.ErrUnknownName)
	assert.Equal(t, http.StatusNotFound, StatusFor(wrapped))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, zerolog.Nop(), fmt.Errorf("%w: SAXO requires access_token", domain.ErrInvalidInputs))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "SAXO requires access_token")
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, zerolog.Nop(), http.StatusCreated, map[string]int{"n": 3})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"n":3}`, rec.Body.String())
}

func TestDecodeBody(t *testing.T) {
	type payload struct {
		NAV float64 `json:"nav"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"nav": 250000}`))
	var p payload
	require.NoError(t, DecodeBody(req, &p))
	assert.Equal(t, 250000.0, p.NAV)

	// Empty body is fine - all fields optional.
	empty := httptest.NewRequest(http.MethodPost, "/", nil)
	var q payload
	require.NoError(t, DecodeBody(empty, &q))
	assert.Zero(t, q.NAV)

	// Malformed body is an invalid-inputs error.
	bad := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"nav": `))
	err := DecodeBody(bad, &payload{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInputs)
}
