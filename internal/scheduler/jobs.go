package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/cache"
	"github.com/voltlab/volguard/internal/engine"
	"github.com/voltlab/volguard/internal/store"
)

const (
	jobTimeout = 2 * time.Minute

	// regimeKeepCount is how many snapshots the prune step retains. Wider
	// than the API window so history survives a burst of classifications.
	regimeKeepCount = 500
)

// CacheSweepJob evicts expired entries from the in-process cache and the
// persistent client-data cache.
type CacheSweepJob struct {
	cache       *cache.Cache
	clientCache *store.ClientCache
	log         zerolog.Logger
}

// NewCacheSweepJob creates a new cache sweep job
func NewCacheSweepJob(c *cache.Cache, clientCache *store.ClientCache, log zerolog.Logger) *CacheSweepJob {
	return &CacheSweepJob{
		cache:       c,
		clientCache: clientCache,
		log:         log.With().Str("job", "cache_sweep").Logger(),
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string { return "cache_sweep" }

// Run executes the cache sweep job
func (j *CacheSweepJob) Run() error {
	swept := j.cache.Sweep()

	deleted, err := j.clientCache.DeleteAllExpired()
	if err != nil {
		return fmt.Errorf("failed to sweep client cache: %w", err)
	}

	var persistent int64
	for _, n := range deleted {
		persistent += n
	}

	j.log.Debug().
		Int("memory_entries", swept).
		Int64("persistent_rows", persistent).
		Msg("Cache sweep finished")
	return nil
}

// RegimeSnapshotJob classifies the current regime and persists it so the
// history endpoint has data across restarts.
type RegimeSnapshotJob struct {
	engine  *engine.Engine
	regimes *store.RegimeHistoryRepository
	log     zerolog.Logger
}

// NewRegimeSnapshotJob creates a new regime snapshot job
func NewRegimeSnapshotJob(eng *engine.Engine, regimes *store.RegimeHistoryRepository, log zerolog.Logger) *RegimeSnapshotJob {
	return &RegimeSnapshotJob{
		engine:  eng,
		regimes: regimes,
		log:     log.With().Str("job", "regime_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *RegimeSnapshotJob) Name() string { return "regime_snapshot" }

// Run executes the regime snapshot job
func (j *RegimeSnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	regime, err := j.engine.GetRegime(ctx)
	if err != nil {
		return fmt.Errorf("failed to classify regime: %w", err)
	}

	if err := j.regimes.Record(ctx, regime, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record regime snapshot: %w", err)
	}

	pruned, err := j.regimes.Prune(ctx, regimeKeepCount)
	if err != nil {
		return fmt.Errorf("failed to prune regime snapshots: %w", err)
	}

	j.log.Debug().
		Str("regime", string(regime.Regime)).
		Int64("pruned", pruned).
		Msg("Regime snapshot stored")
	return nil
}

// MaintenanceJob checkpoints and vacuums the databases to keep WAL files
// and fragmentation under control.
type MaintenanceJob struct {
	databases []*store.DB
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new database maintenance job
func NewMaintenanceJob(databases []*store.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "db_maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string { return "db_maintenance" }

// Run executes the database maintenance job
func (j *MaintenanceJob) Run() error {
	start := time.Now()

	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			return fmt.Errorf("failed to checkpoint %s: %w", db.Name(), err)
		}
		if err := db.Vacuum(); err != nil {
			return fmt.Errorf("failed to vacuum %s: %w", db.Name(), err)
		}
		j.log.Debug().Str("database", db.Name()).Msg("Maintenance completed")
	}

	j.log.Info().
		Int("databases", len(j.databases)).
		Dur("duration", time.Since(start)).
		Msg("Database maintenance finished")
	return nil
}
