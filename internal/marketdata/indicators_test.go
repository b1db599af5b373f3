package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/store"
)

func indicatorsCache(t *testing.T) *store.ClientCache {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE market_indicators (category TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL)`,
		`CREATE TABLE sector_performance (symbol TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL)`,
		`CREATE TABLE market_breadth (universe TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL)`,
	} {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}

	return store.NewClientCache(db)
}

// countingProvider wraps the mock and counts quote calls.
type countingProvider struct {
	*MockProvider
	quoteCalls atomic.Int32
}

func (p *countingProvider) GetQuote(ctx context.Context, symbol string, market domain.Market) (*domain.Quote, error) {
	p.quoteCalls.Add(1)
	return p.MockProvider.GetQuote(ctx, symbol, market)
}

func TestIndicatorsAssemblesAllParts(t *testing.T) {
	svc := NewIndicatorsService(NewMockProvider(), indicatorsCache(t), zerolog.Nop())

	out := svc.Get(context.Background())

	require.NotNil(t, out.Bonds)
	assert.Greater(t, out.Bonds.US10Y, 0.0)
	assert.InDelta(t, out.Bonds.US10Y-out.Bonds.US3M, out.Bonds.YieldSpread, 0.02)
	assert.Equal(t, "TLT", out.Bonds.TLT.Symbol)

	require.Len(t, out.Commodities, 3)
	assert.Equal(t, "GLD", out.Commodities["gold"].Symbol)
	assert.Equal(t, "USO", out.Commodities["oil"].Symbol)
	assert.Equal(t, "UUP", out.Commodities["dollar"].Symbol)

	require.Len(t, out.Sectors, 11)
	assert.Equal(t, "XLK", out.Sectors["technology"].Symbol)
	assert.Greater(t, out.Sectors["energy"].Price, 0.0)

	require.NotNil(t, out.Breadth)
	assert.Equal(t, len(breadthUniverse), out.Breadth.SampleSize)
	assert.LessOrEqual(t, out.Breadth.Advancing+out.Breadth.Declining, out.Breadth.SampleSize)
	assert.GreaterOrEqual(t, out.Breadth.PctAboveSMA, 0.0)
	assert.LessOrEqual(t, out.Breadth.PctAboveSMA, 100.0)
	assert.WithinDuration(t, time.Now(), out.Timestamp, 5*time.Second)
}

func TestIndicatorsSecondCallServedFromCache(t *testing.T) {
	provider := &countingProvider{MockProvider: NewMockProvider()}
	svc := NewIndicatorsService(provider, indicatorsCache(t), zerolog.Nop())

	svc.Get(context.Background())
	first := provider.quoteCalls.Load()
	require.Greater(t, first, int32(0))

	out := svc.Get(context.Background())
	assert.Equal(t, first, provider.quoteCalls.Load())
	require.NotNil(t, out.Bonds)
	require.NotNil(t, out.Breadth)
}

func TestIndicatorsToleratesProviderFailure(t *testing.T) {
	failing := &failingProvider{err: errors.New("connection refused")}
	svc := NewIndicatorsService(failing, indicatorsCache(t), zerolog.Nop())

	out := svc.Get(context.Background())

	assert.Nil(t, out.Bonds)
	assert.Nil(t, out.Commodities)
	assert.Nil(t, out.Sectors)
	assert.Nil(t, out.Breadth)
	assert.False(t, out.Timestamp.IsZero())
}

func TestIndicatorsStaleFallbackWhenProviderDown(t *testing.T) {
	cache := indicatorsCache(t)

	// Seed an already-expired bonds entry so GetIfFresh misses but Get hits.
	stale := Bonds{US10Y: 4.1, US3M: 5.3, YieldSpread: -1.2}
	require.NoError(t, cache.Store("market_indicators", "bonds", stale, -time.Minute))

	failing := &failingProvider{err: errors.New("connection refused")}
	svc := NewIndicatorsService(failing, cache, zerolog.Nop())

	out := svc.Get(context.Background())
	require.NotNil(t, out.Bonds)
	assert.Equal(t, 4.1, out.Bonds.US10Y)
	assert.Equal(t, -1.2, out.Bonds.YieldSpread)
}

func TestIndicatorsNilCache(t *testing.T) {
	svc := NewIndicatorsService(NewMockProvider(), nil, zerolog.Nop())

	out := svc.Get(context.Background())
	require.NotNil(t, out.Bonds)
	require.NotNil(t, out.Breadth)
}

func TestSMA(t *testing.T) {
	bars := make([]domain.PriceBar, 0, 4)
	for i, close := range []float64{10, 20, 30, 40} {
		bars = append(bars, domain.PriceBar{Close: close, Timestamp: time.Now().AddDate(0, 0, -i)})
	}
	assert.Equal(t, 25.0, sma(bars))
}

func TestMoverFromQuote(t *testing.T) {
	q := &domain.Quote{
		Symbol:        "GLD",
		Price:         185.50,
		Change:        domain.Float64Ptr(1.234),
		ChangePercent: domain.Float64Ptr(0.669),
	}
	m := moverFromQuote(q)
	assert.Equal(t, Mover{Symbol: "GLD", Price: 185.50, Change: 1.23, ChangePercent: 0.67}, m)

	bare := moverFromQuote(&domain.Quote{Symbol: "USO", Price: 70.0})
	assert.Equal(t, Mover{Symbol: "USO", Price: 70.0}, bare)
}
