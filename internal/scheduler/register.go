package scheduler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/config"
	"github.com/voltlab/volguard/internal/di"
	"github.com/voltlab/volguard/internal/store"
)

// Schedules. Maintenance and backups run in the quiet hours; the backup
// follows maintenance so it archives freshly checkpointed files.
const (
	cacheSweepSchedule     = "@every 5m"
	regimeSnapshotSchedule = "@every 15m"
	maintenanceSchedule    = "0 0 2 * * *"
	backupSchedule         = "0 30 2 * * *"
)

// Register wires the standard jobs into the scheduler. The backup job is
// only registered when a bucket is configured.
func Register(ctx context.Context, s *Scheduler, c *di.Container, cfg *config.Config, log zerolog.Logger) error {
	databases := []*store.DB{c.CoreDB, c.ClientsDB}

	if err := s.AddJob(cacheSweepSchedule, NewCacheSweepJob(c.Cache, c.ClientCache, log)); err != nil {
		return fmt.Errorf("failed to register cache sweep job: %w", err)
	}
	if err := s.AddJob(regimeSnapshotSchedule, NewRegimeSnapshotJob(c.Engine, c.Regimes, log)); err != nil {
		return fmt.Errorf("failed to register regime snapshot job: %w", err)
	}
	if err := s.AddJob(maintenanceSchedule, NewMaintenanceJob(databases, log)); err != nil {
		return fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if cfg.BackupS3Bucket == "" {
		log.Info().Msg("S3 backup disabled, no bucket configured")
		return nil
	}

	backup, err := NewS3BackupJob(ctx, cfg.BackupS3Bucket, cfg.DataDir, databases, log)
	if err != nil {
		return fmt.Errorf("failed to build S3 backup job: %w", err)
	}
	if err := s.AddJob(backupSchedule, backup); err != nil {
		return fmt.Errorf("failed to register S3 backup job: %w", err)
	}
	return nil
}
