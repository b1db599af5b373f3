package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlab/volguard/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir:           dir,
		Provider:          "mock",
		ToolServersConfig: filepath.Join(dir, "toolservers.yaml"),
		DefaultNAV:        100000,
	}
}

func TestWireBuildsContainer(t *testing.T) {
	c, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.CoreDB)
	assert.NotNil(t, c.ClientsDB)
	assert.NotNil(t, c.Cache)
	assert.NotNil(t, c.ToolServers)
	assert.NotNil(t, c.Registry)
	assert.NotNil(t, c.Provider)
	assert.NotNil(t, c.Indicators)
	assert.NotNil(t, c.FearGreed)
	assert.NotNil(t, c.Engine)
	assert.NotNil(t, c.Watchlist)
	assert.NotNil(t, c.Reviews)
	assert.NotNil(t, c.Regimes)
	assert.NotNil(t, c.ClientCache)
	assert.False(t, c.StartedAt.IsZero())

	assert.Equal(t, "mock", c.Registry.Active())
}

func TestWireMigratesDatabases(t *testing.T) {
	c, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	// Repositories work against the migrated schemas straight away.
	entries, err := c.Watchlist.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	fresh, err := c.ClientCache.GetIfFresh("quotes", "SPY")
	require.NoError(t, err)
	assert.Nil(t, fresh)
}

func TestWireRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Provider = "bloomberg"

	_, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestWireEngineClassifiesWithMockProvider(t *testing.T) {
	c, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	regime, err := c.Engine.GetRegime(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, regime.Regime)
}
