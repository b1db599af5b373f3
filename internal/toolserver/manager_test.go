package toolserver

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateArgs(t *testing.T) {
	args := map[string]any{"ticker": "SPY", "interval": "1d"}

	out := translateArgs(args, map[string]string{"ticker": "symbol"})
	assert.Equal(t, "SPY", out["symbol"])
	assert.Equal(t, "1d", out["interval"])
	_, hasOld := out["ticker"]
	assert.False(t, hasOld)

	// No mapping passes the original map through.
	same := translateArgs(args, nil)
	assert.Equal(t, args, same)
}

func TestManagerStatusesBeforeStartup(t *testing.T) {
	disabled := false
	cfg := &Config{Servers: map[string]ServerConfig{
		"yahoo": {Name: "Yahoo Finance"},
		"av":    {Name: "Alpha Vantage", Enabled: &disabled},
	}}
	m := NewManager(cfg, zerolog.Nop())

	assert.Empty(t, m.Statuses())
}

func TestManagerStartupRecordsFailures(t *testing.T) {
	disabled := false
	cfg := &Config{Servers: map[string]ServerConfig{
		"broken": {Name: "Broken", Command: "/nonexistent/binary"},
		"off":    {Name: "Disabled", Enabled: &disabled},
	}}
	m := NewManager(cfg, zerolog.Nop())

	m.Startup(context.Background())

	statuses := m.Statuses()
	require.Len(t, statuses, 2)

	// Sorted by ID: broken, off.
	assert.Equal(t, "broken", statuses[0].ID)
	assert.Equal(t, "error", statuses[0].State)
	assert.NotEmpty(t, statuses[0].Error)

	assert.Equal(t, "off", statuses[1].ID)
	assert.False(t, statuses[1].Enabled)
	assert.Equal(t, "disconnected", statuses[1].State)
}

func TestCallToolNotConnected(t *testing.T) {
	m := NewManager(&Config{}, zerolog.Nop())

	result := m.CallTool(context.Background(), "yahoo", "get_quote", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, `server "yahoo" not connected`)
}

func TestCallWithFallbackSkipsUnmappedServers(t *testing.T) {
	cfg := &Config{
		Servers: map[string]ServerConfig{
			"nomapping": {Name: "No Mapping"},
		},
		FallbackPriority: map[string][]string{
			"quote": {"missing-server", "nomapping"},
		},
	}
	m := NewManager(cfg, zerolog.Nop())

	_, _, ok := m.CallWithFallback(context.Background(), "quote", "get_quote", map[string]any{"ticker": "SPY"})
	assert.False(t, ok)
}

func TestCallWithFallbackUnknownCapability(t *testing.T) {
	m := NewManager(&Config{}, zerolog.Nop())

	_, _, ok := m.CallWithFallback(context.Background(), "sentiment", "get_sentiment", nil)
	assert.False(t, ok)
}
