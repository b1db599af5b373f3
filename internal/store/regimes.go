package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/voltlab/volguard/internal/engine"
)

// maxRecentSnapshots caps how many classifications the history endpoint
// returns.
const maxRecentSnapshots = 20

// RegimeSnapshot is one persisted classification.
type RegimeSnapshot struct {
	Regime       engine.Regime `json:"regime"`
	ClassifiedAt time.Time     `json:"classified_at"`
}

// RegimeHistoryRepository persists regime classifications so transitions
// survive restarts. Snapshots are stored as msgpack blobs, the regime label
// and timestamp are broken out for querying.
type RegimeHistoryRepository struct {
	db *sql.DB
}

// NewRegimeHistoryRepository creates a new regime history repository.
func NewRegimeHistoryRepository(db *sql.DB) *RegimeHistoryRepository {
	return &RegimeHistoryRepository{db: db}
}

// Record stores a classification.
func (r *RegimeHistoryRepository) Record(ctx context.Context, regime engine.Regime, at time.Time) error {
	data, err := msgpack.Marshal(regime)
	if err != nil {
		return fmt.Errorf("failed to marshal regime snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO regime_snapshots (regime, classified_at, data) VALUES (?, ?, ?)",
		string(regime.Regime), at.UTC().Format(time.RFC3339Nano), data)
	if err != nil {
		return fmt.Errorf("failed to store regime snapshot: %w", err)
	}

	return nil
}

// Recent returns the latest snapshots, newest first. The limit is capped at
// 20 and a non-positive limit returns the full window.
func (r *RegimeHistoryRepository) Recent(ctx context.Context, limit int) ([]RegimeSnapshot, error) {
	if limit <= 0 || limit > maxRecentSnapshots {
		limit = maxRecentSnapshots
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT classified_at, data FROM regime_snapshots ORDER BY classified_at DESC, id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query regime snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []RegimeSnapshot{}
	for rows.Next() {
		var classifiedAt string
		var data []byte
		if err := rows.Scan(&classifiedAt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan regime snapshot: %w", err)
		}

		var snap RegimeSnapshot
		if err := msgpack.Unmarshal(data, &snap.Regime); err != nil {
			return nil, fmt.Errorf("failed to unmarshal regime snapshot: %w", err)
		}
		snap.ClassifiedAt, err = time.Parse(time.RFC3339Nano, classifiedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid classified_at: %w", err)
		}

		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

// Prune deletes everything beyond the retained window. Returns the number of
// rows deleted.
func (r *RegimeHistoryRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = maxRecentSnapshots
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM regime_snapshots WHERE id NOT IN (
			SELECT id FROM regime_snapshots ORDER BY classified_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune regime snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
