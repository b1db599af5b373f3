package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlab/volguard/internal/store"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()

	db, err := store.New(store.Config{
		Path:    filepath.Join(t.TempDir(), "core.db"),
		Profile: store.ProfileStandard,
		Name:    store.CoreDB,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return NewHandler(store.NewWatchlistRepository(db.Conn()), zerolog.Nop())
}

func serve(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestAddNormalizesSymbol(t *testing.T) {
	h := testHandler(t)

	rec := serve(t, h, http.MethodPost, "/watchlist", map[string]string{"symbol": "spy"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry store.WatchlistEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "SPY", entry.Symbol)
	assert.Equal(t, "US", entry.Market)
}

func TestListReturnsCount(t *testing.T) {
	h := testHandler(t)

	for _, symbol := range []string{"SPY", "QQQ", "TLT"} {
		rec := serve(t, h, http.MethodPost, "/watchlist", map[string]string{"symbol": symbol})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := serve(t, h, http.MethodGet, "/watchlist", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3.0, body["count"])
}

func TestRemoveUnknownSymbolReturns404(t *testing.T) {
	h := testHandler(t)

	rec := serve(t, h, http.MethodDelete, "/watchlist/NVDA", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveAfterAdd(t *testing.T) {
	h := testHandler(t)

	rec := serve(t, h, http.MethodPost, "/watchlist", map[string]string{"symbol": "IWM", "market": "US"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, h, http.MethodDelete, "/watchlist/IWM", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodGet, "/watchlist", nil)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0.0, body["count"])
}
