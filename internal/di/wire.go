// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/cache"
	"github.com/voltlab/volguard/internal/clients/feargreed"
	"github.com/voltlab/volguard/internal/config"
	"github.com/voltlab/volguard/internal/engine"
	"github.com/voltlab/volguard/internal/marketdata"
	"github.com/voltlab/volguard/internal/store"
	"github.com/voltlab/volguard/internal/toolserver"
)

// Container holds all initialized dependencies. It is built once at startup
// by Wire and handed to the server and scheduler; nothing here is a global.
type Container struct {
	// Databases. Core holds durable domain state (watchlist, reviews,
	// regime history); Clients holds cached responses from external
	// data sources and is safe to delete.
	CoreDB    *store.DB
	ClientsDB *store.DB

	// In-process response cache shared by the cached provider wrapper.
	Cache *cache.Cache

	// External tool-server subprocesses used as provider fallbacks.
	ToolServers *toolserver.Manager

	// Market data. Registry owns the switchable primary provider;
	// Provider is the cached wrapper handlers should use.
	Registry   *marketdata.Registry
	Provider   *marketdata.CachedProvider
	Indicators *marketdata.IndicatorsService
	FearGreed  *feargreed.Client

	// Decision engine over the live market inputs.
	Engine *engine.Engine

	// Repositories - data access layer
	Watchlist   *store.WatchlistRepository
	Reviews     *store.ReviewRepository
	Regimes     *store.RegimeHistoryRepository
	ClientCache *store.ClientCache

	StartedAt time.Time
}

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open and migrate databases
// 2. Build the tool-server manager and provider registry
// 3. Build repositories, clients and the decision engine
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	coreDB, err := store.New(store.Config{
		Path:    filepath.Join(cfg.DataDir, "core.db"),
		Profile: store.ProfileStandard,
		Name:    store.CoreDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open core database: %w", err)
	}
	if err := coreDB.Migrate(); err != nil {
		coreDB.Close()
		return nil, fmt.Errorf("failed to migrate core database: %w", err)
	}

	clientsDB, err := store.New(store.Config{
		Path:    filepath.Join(cfg.DataDir, "clients.db"),
		Profile: store.ProfileCache,
		Name:    store.ClientsDB,
	})
	if err != nil {
		coreDB.Close()
		return nil, fmt.Errorf("failed to open clients database: %w", err)
	}
	if err := clientsDB.Migrate(); err != nil {
		coreDB.Close()
		clientsDB.Close()
		return nil, fmt.Errorf("failed to migrate clients database: %w", err)
	}

	c := &Container{
		CoreDB:    coreDB,
		ClientsDB: clientsDB,
		Cache:     cache.New(log),
		StartedAt: time.Now(),
	}

	toolCfg, err := toolserver.LoadConfig(cfg.ToolServersConfig)
	if err != nil {
		c.closeDatabases()
		return nil, fmt.Errorf("failed to load tool server config: %w", err)
	}
	c.ToolServers = toolserver.NewManager(toolCfg, log)

	c.Registry, err = marketdata.NewRegistry(cfg, c.Cache, c.ToolServers, log)
	if err != nil {
		c.closeDatabases()
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}
	c.Provider = marketdata.NewCachedProvider(c.Registry.Provider(), c.Cache)

	c.Watchlist = store.NewWatchlistRepository(coreDB.Conn())
	c.Reviews = store.NewReviewRepository(coreDB.Conn())
	c.Regimes = store.NewRegimeHistoryRepository(coreDB.Conn())
	c.ClientCache = store.NewClientCache(clientsDB.Conn())

	c.FearGreed = feargreed.NewClient(cfg.FearGreedURL, c.ClientCache, log)
	c.Indicators = marketdata.NewIndicatorsService(c.Provider, c.ClientCache, log)

	collector := marketdata.NewCollector(c.Provider, log)
	c.Engine = engine.New(collector, log)

	log.Info().
		Str("provider", c.Registry.Active()).
		Str("data_dir", cfg.DataDir).
		Msg("Dependency injection wiring completed")

	return c, nil
}

// Close releases everything the container owns. Tool-server subprocesses go
// first so their shutdown writes never race a closed database.
func (c *Container) Close() {
	if c.ToolServers != nil {
		c.ToolServers.Shutdown()
	}
	c.closeDatabases()
}

func (c *Container) closeDatabases() {
	if c.CoreDB != nil {
		c.CoreDB.Close()
	}
	if c.ClientsDB != nil {
		c.ClientsDB.Close()
	}
}
