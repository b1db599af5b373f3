package marketdata

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/cache"
	"github.com/voltlab/volguard/internal/config"
	"github.com/voltlab/volguard/internal/domain"
)

// ProviderInfo describes one selectable provider for the API.
type ProviderInfo struct {
	Name    string          `json:"name"`
	Markets []domain.Market `json:"markets"`
	Active  bool            `json:"active"`
}

// Registry owns the active primary provider behind the aggregated wrapper.
// Switching providers swaps the primary in place, so handlers holding the
// aggregated provider see the change immediately; cached data from the old
// provider is dropped.
type Registry struct {
	mu         sync.RWMutex
	cfg        *config.Config
	cache      *cache.Cache
	aggregated *AggregatedProvider
	active     string
	log        zerolog.Logger
}

// NewRegistry builds the configured primary provider and wraps it with the
// fallback chain.
func NewRegistry(cfg *config.Config, c *cache.Cache, fallback FallbackCaller, log zerolog.Logger) (*Registry, error) {
	r := &Registry{
		cfg:   cfg,
		cache: c,
		log:   log.With().Str("component", "provider_registry").Logger(),
	}

	primary, err := r.build(cfg.Provider, nil)
	if err != nil {
		return nil, err
	}
	r.aggregated = NewAggregatedProvider(primary, fallback, log)
	r.active = cfg.Provider
	return r, nil
}

// Provider returns the aggregated provider handlers should use.
func (r *Registry) Provider() *AggregatedProvider {
	return r.aggregated
}

// Active returns the name of the current primary provider.
func (r *Registry) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Available lists the selectable providers.
func (r *Registry) Available() []ProviderInfo {
	active := r.Active()
	infos := make([]ProviderInfo, 0, 3)
	for _, name := range []string{"mock", "ibkr", "saxo"} {
		infos = append(infos, ProviderInfo{
			Name:    name,
			Markets: domain.AllMarkets,
			Active:  name == active,
		})
	}
	return infos
}

// Switch replaces the primary provider. Options supply provider credentials
// and connection settings, falling back to the configured defaults.
func (r *Registry) Switch(name string, options map[string]any) error {
	primary, err := r.build(name, options)
	if err != nil {
		return err
	}

	r.mu.Lock()
	previous := r.active
	r.active = name
	r.mu.Unlock()

	r.aggregated.SetPrimary(primary)
	r.cache.Clear()

	r.log.Info().
		Str("from", previous).
		Str("to", name).
		Msg("Switched market data provider")
	return nil
}

func (r *Registry) build(name string, options map[string]any) (domain.Provider, error) {
	switch name {
	case "mock":
		return NewMockProvider(), nil
	case "ibkr":
		host := optString(options, "host", r.cfg.IBKR.Host)
		port := optInt(options, "port", r.cfg.IBKR.Port)
		clientID := optInt(options, "client_id", r.cfg.IBKR.ClientID)
		return NewIBKRProvider(host, port, clientID, r.log), nil
	case "saxo":
		token := optString(options, "access_token", r.cfg.Saxo.AccessToken)
		if token == "" {
			return nil, fmt.Errorf("%w: SAXO requires access_token", domain.ErrInvalidInputs)
		}
		environment := optString(options, "environment", r.cfg.Saxo.Environment)
		return NewSaxoProvider(token, environment, r.log), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider: %s", domain.ErrInvalidInputs, name)
	}
}

func optString(options map[string]any, key, fallback string) string {
	if s, ok := options[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func optInt(options map[string]any, key string, fallback int) int {
	switch v := options[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
