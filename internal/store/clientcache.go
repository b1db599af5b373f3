package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ClientTables lists all tables in the clients database for cleanup operations.
var ClientTables = []string{
	"fear_greed",
	"market_indicators",
	"sector_performance",
	"market_breadth",
	"quotes",
}

// TTL constants for cached client responses.
// These are added to time.Now() when storing to calculate expires_at.
const (
	TTLFearGreed        = 30 * time.Minute // Index updates a few times per hour
	TTLMarketIndicators = 15 * time.Minute // Bond yields, commodities, dollar
	TTLSectorPerf       = 15 * time.Minute // SPDR sector ETF moves
	TTLMarketBreadth    = 15 * time.Minute // Advance/decline aggregates
	TTLQuotes           = 10 * time.Minute // Quote cache for batch operations
)

// validClientTables is a set for O(1) table name validation.
var validClientTables = func() map[string]bool {
	m := make(map[string]bool, len(ClientTables))
	for _, t := range ClientTables {
		m[t] = true
	}
	return m
}()

// clientsSchema builds the schema for the clients database. Every table has
// the same shape: a key column, a JSON data blob and an expiration timestamp.
func clientsSchema() string {
	var b strings.Builder
	for _, table := range ClientTables {
		fmt.Fprintf(&b,
			"CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);\n",
			table, clientKeyColumn(table))
		fmt.Fprintf(&b,
			"CREATE INDEX IF NOT EXISTS idx_%s_expires ON %s(expires_at);\n",
			table, table)
	}
	return b.String()
}

// clientKeyColumn returns the primary key column name for a table.
// Most tables are keyed by symbol, the aggregates use different keys.
func clientKeyColumn(table string) string {
	switch table {
	case "fear_greed":
		return "scope"
	case "market_indicators":
		return "category"
	case "market_breadth":
		return "universe"
	default:
		return "symbol"
	}
}

// ClientCache provides persistent cache operations for external client data.
// All data is stored as JSON blobs with expiration timestamps so callers can
// fall back to stale data when an upstream service is unavailable.
type ClientCache struct {
	db *sql.DB
}

// NewClientCache creates a new client cache repository.
func NewClientCache(db *sql.DB) *ClientCache {
	return &ClientCache{db: db}
}

// validateClientTable ensures the table name is in our allowed list.
// This prevents SQL injection through table names.
func validateClientTable(table string) error {
	if !validClientTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store saves data with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (c *ClientCache) Store(table, key string, data interface{}, ttl time.Duration) error {
	if err := validateClientTable(table); err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s, data, expires_at) VALUES (?, ?, ?)",
		table, clientKeyColumn(table),
	)

	if _, err := c.db.Exec(query, key, string(jsonData), expiresAt); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// GetIfFresh returns data only if expires_at > now, nil otherwise.
// Returns nil, nil if the key doesn't exist or data is expired.
// Use Get() to retrieve stale data as a fallback when upstream calls fail.
func (c *ClientCache) GetIfFresh(table, key string) (json.RawMessage, error) {
	if err := validateClientTable(table); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	query := fmt.Sprintf(
		"SELECT data FROM %s WHERE %s = ? AND expires_at > ?",
		table, clientKeyColumn(table),
	)

	var data string
	err := c.db.QueryRow(query, key, now).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	return json.RawMessage(data), nil
}

// Get returns data regardless of expiration status.
// Use this as a fallback when upstream calls fail - stale data is better
// than no data. Returns nil, nil if the key doesn't exist.
func (c *ClientCache) Get(table, key string) (json.RawMessage, error) {
	if err := validateClientTable(table); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT data FROM %s WHERE %s = ?",
		table, clientKeyColumn(table),
	)

	var data string
	err := c.db.QueryRow(query, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	return json.RawMessage(data), nil
}

// Delete removes a specific entry.
func (c *ClientCache) Delete(table, key string) error {
	if err := validateClientTable(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, clientKeyColumn(table))

	if _, err := c.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (c *ClientCache) DeleteExpired(table string) (int64, error) {
	if err := validateClientTable(table); err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)

	result, err := c.db.Exec(query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}

	return deleted, nil
}

// DeleteAllExpired removes all expired entries from all tables.
// Returns a map of table name to number of rows deleted.
func (c *ClientCache) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range ClientTables {
		deleted, err := c.DeleteExpired(table)
		if err != nil {
			return results, fmt.Errorf("failed to delete expired from %s: %w", table, err)
		}
		results[table] = deleted
	}

	return results, nil
}
