package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string, profile Profile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestNewDefaultsToStandardProfile(t *testing.T) {
	db := newTestDB(t, "core", "")

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "core", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestMigrateCoreSchema(t *testing.T) {
	db := newTestDB(t, CoreDB, ProfileStandard)
	require.NoError(t, db.Migrate())

	// Repeated migration is a no-op.
	require.NoError(t, db.Migrate())

	for _, table := range []string{"watchlist", "trade_reviews", "regime_snapshots"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestMigrateClientsSchema(t *testing.T) {
	db := newTestDB(t, ClientsDB, ProfileCache)
	require.NoError(t, db.Migrate())

	for _, table := range ClientTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestMigrateUnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch", ProfileStandard)
	require.NoError(t, db.Migrate())
}

func TestBuildConnectionString(t *testing.T) {
	connStr := buildConnectionString("/tmp/core.db", ProfileStandard)
	assert.Contains(t, connStr, "_pragma=journal_mode(WAL)")
	assert.Contains(t, connStr, "_pragma=synchronous(NORMAL)")
	assert.Contains(t, connStr, "_pragma=foreign_keys(1)")

	connStr = buildConnectionString("/tmp/clients.db", ProfileCache)
	assert.Contains(t, connStr, "_pragma=synchronous(OFF)")
	assert.Contains(t, connStr, "_pragma=auto_vacuum(FULL)")

	connStr = buildConnectionString("/tmp/ledger.db", ProfileLedger)
	assert.Contains(t, connStr, "_pragma=synchronous(FULL)")

	// file: URIs with query strings keep a single separator.
	connStr = buildConnectionString("file:mem?mode=memory", ProfileStandard)
	assert.Contains(t, connStr, "mode=memory&_pragma=journal_mode(WAL)")
}

func TestWithTransactionCommit(t *testing.T) {
	db := newTestDB(t, CoreDB, ProfileStandard)
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"INSERT INTO watchlist (symbol, market, added_at) VALUES (?, ?, ?)",
			"SPY", "US", "2026-08-25T00:00:00Z")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM watchlist").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransactionRollbackOnError(t *testing.T) {
	db := newTestDB(t, CoreDB, ProfileStandard)
	require.NoError(t, db.Migrate())

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, execErr := tx.Exec(
			"INSERT INTO watchlist (symbol, market, added_at) VALUES (?, ?, ?)",
			"SPY", "US", "2026-08-25T00:00:00Z")
		require.NoError(t, execErr)
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM watchlist").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransactionRecoversPanic(t *testing.T) {
	db := newTestDB(t, CoreDB, ProfileStandard)
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestWithTransactionNilDB(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection is nil")
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t, CoreDB, ProfileStandard)
	require.NoError(t, db.Migrate())

	ctx := context.Background()
	require.NoError(t, db.HealthCheck(ctx))
	require.NoError(t, db.QuickCheck(ctx))
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t, CoreDB, ProfileStandard)
	require.NoError(t, db.Migrate())

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}

func TestWALCheckpointAndVacuum(t *testing.T) {
	db := newTestDB(t, CoreDB, ProfileStandard)
	require.NoError(t, db.Migrate())

	require.NoError(t, db.WALCheckpoint(""))
	require.NoError(t, db.Vacuum())
}
