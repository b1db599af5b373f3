package feargreed

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlab/volguard/internal/store"
)

const sampleResponse = `{
	"fear_and_greed": {
		"score": 62.4,
		"rating": "greed",
		"timestamp": "2026-08-25T14:30:00+00:00",
		"previous_close": 58.1,
		"previous_1_week": 51.0,
		"previous_1_month": 44.7,
		"previous_1_year": 70.2
	},
	"market_momentum_sp500": {"score": 71.5, "rating": "greed"},
	"stock_price_strength": {"score": 55.0, "rating": "neutral"},
	"put_call_options": {"score": 40.2, "rating": "fear"},
	"market_volatility_vix": {"score": 66.0, "rating": "greed"},
	"junk_bond_demand": {"score": 60.1, "rating": "greed"},
	"safe_haven_demand": {"score": 48.9, "rating": "neutral"}
}`

func testCache(t *testing.T) *store.ClientCache {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE fear_greed (
		scope TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	return store.NewClientCache(db)
}

func TestGetIndexFetchesAndParses(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testCache(t), zerolog.Nop())

	index, err := client.GetIndex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 62.4, index.Score)
	assert.Equal(t, "greed", index.Rating)
	assert.Equal(t, 58.1, index.PreviousClose)
	assert.NotEmpty(t, gotUA)

	require.Contains(t, index.Components, "market_momentum")
	assert.Equal(t, 71.5, index.Components["market_momentum"].Score)
	assert.Equal(t, "fear", index.Components["put_call_options"].Rating)
	// stock_price_breadth is absent from the payload and must not appear.
	assert.NotContains(t, index.Components, "stock_price_breadth")
}

func TestGetIndexUsesFreshCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testCache(t), zerolog.Nop())

	_, err := client.GetIndex(context.Background())
	require.NoError(t, err)

	index, err := client.GetIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 62.4, index.Score)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetIndexStaleFallback(t *testing.T) {
	cache := testCache(t)

	// Seed an expired entry directly; ttl of -1 makes it stale immediately.
	stale := Index{Score: 33.0, Rating: "fear"}
	require.NoError(t, cache.Store("fear_greed", "index", stale, -1))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, cache, zerolog.Nop())

	index, err := client.GetIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 33.0, index.Score)
	assert.Equal(t, "fear", index.Rating)
}

func TestGetIndexUpstreamErrorNoCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testCache(t), zerolog.Nop())

	_, err := client.GetIndex(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestGetIndexMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>blocked</html>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testCache(t), zerolog.Nop())

	_, err := client.GetIndex(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestGetIndexNilCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, zerolog.Nop())

	index, err := client.GetIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 62.4, index.Score)
}
