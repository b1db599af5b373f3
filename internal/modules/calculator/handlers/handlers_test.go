package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doProbability(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	NewHandler(zerolog.Nop()).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/calculator/probability", bytes.NewBufferString(body))
	r.ServeHTTP(rec, req)
	return rec
}

func TestProbabilityATM(t *testing.T) {
	rec := doProbability(t, `{"spot": 100, "strike": 100, "days": 30, "iv": 0.20}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	// At the money the drift term 0.5 sigma^2 t pushes prob_below just
	// under 50.
	assert.InDelta(t, 48.86, out["prob_below"], 0.1)
	assert.InDelta(t, 100.0, out["prob_below"]+out["prob_above"], 0.01)

	// Expected move = S * sigma * sqrt(t) = 100 * 0.20 * sqrt(30/365).
	assert.InDelta(t, 5.73, out["expected_move"], 0.05)
	assert.InDelta(t, 5.73, out["expected_move_percent"], 0.05)
}

func TestProbabilityDeepOTMPut(t *testing.T) {
	rec := doProbability(t, `{"spot": 100, "strike": 70, "days": 30, "iv": 0.20}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Less(t, out["prob_below"], 1.0)
	assert.Greater(t, out["prob_above"], 99.0)
}

func TestProbabilityRejectsNonPositiveInputs(t *testing.T) {
	for _, body := range []string{
		`{"spot": 0, "strike": 100, "days": 30, "iv": 0.2}`,
		`{"spot": 100, "strike": -5, "days": 30, "iv": 0.2}`,
		`{"spot": 100, "strike": 100, "days": 0, "iv": 0.2}`,
		`{"spot": 100, "strike": 100, "days": 30, "iv": 0}`,
		`{}`,
	} {
		rec := doProbability(t, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), "must all be positive")
	}
}

func TestProbabilityMalformedBody(t *testing.T) {
	rec := doProbability(t, `{"spot": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
