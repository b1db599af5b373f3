package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/voltlab/volguard/internal/domain"
)

// WatchlistEntry is a single tracked symbol.
type WatchlistEntry struct {
	Symbol  string    `json:"symbol"`
	Market  string    `json:"market"`
	AddedAt time.Time `json:"added_at"`
}

// WatchlistRepository persists tracked symbols in the core database.
type WatchlistRepository struct {
	db *sql.DB
}

// NewWatchlistRepository creates a new watchlist repository.
func NewWatchlistRepository(db *sql.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// List returns all watchlist entries ordered by when they were added.
func (r *WatchlistRepository) List(ctx context.Context) ([]WatchlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT symbol, market, added_at FROM watchlist ORDER BY added_at, symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	entries := []WatchlistEntry{}
	for rows.Next() {
		var entry WatchlistEntry
		var addedAt string
		if err := rows.Scan(&entry.Symbol, &entry.Market, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist row: %w", err)
		}
		entry.AddedAt, err = time.Parse(time.RFC3339, addedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid added_at for %s: %w", entry.Symbol, err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Add upserts a symbol. Symbols are normalized to upper case and the market
// defaults to US when not specified.
func (r *WatchlistRepository) Add(ctx context.Context, symbol, market string) (WatchlistEntry, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return WatchlistEntry{}, fmt.Errorf("%w: symbol is required", domain.ErrInvalidInputs)
	}
	if market == "" {
		market = "US"
	}

	entry := WatchlistEntry{
		Symbol:  symbol,
		Market:  market,
		AddedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO watchlist (symbol, market, added_at) VALUES (?, ?, ?)",
		entry.Symbol, entry.Market, entry.AddedAt.Format(time.RFC3339))
	if err != nil {
		return WatchlistEntry{}, fmt.Errorf("failed to add %s to watchlist: %w", symbol, err)
	}

	return entry, nil
}

// Remove deletes a symbol from the watchlist.
func (r *WatchlistRepository) Remove(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	result, err := r.db.ExecContext(ctx, "DELETE FROM watchlist WHERE symbol = ?", symbol)
	if err != nil {
		return fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s not in watchlist", domain.ErrUnknownName, symbol)
	}

	return nil
}
