package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/engine"
)

const reviewDateLayout = "2006-01-02"

// PnLAttribution is P&L attribution across Greeks.
type PnLAttribution struct {
	Theta float64 `json:"theta"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Total float64 `json:"total"`
}

// Review is a post-trade review record. The regime at entry is stamped by
// the caller when the review is created so it reflects the classification at
// that moment, not a later reconstruction.
type Review struct {
	ID       string                   `json:"id"`
	TradeID  string                   `json:"trade_id,omitempty"`
	Symbol   string                   `json:"symbol,omitempty"`
	Strategy string                   `json:"strategy"`
	Legs     []map[string]interface{} `json:"legs,omitempty"`

	EntryDate string `json:"entry_date"`
	ExitDate  string `json:"exit_date,omitempty"`

	RegimeAtEntry engine.Regime  `json:"regime_at_entry"`
	RegimeAtExit  *engine.Regime `json:"regime_at_exit,omitempty"`
	RegimeChanged bool           `json:"regime_changed"`

	EntryScore  float64  `json:"entry_score"`
	EntryThesis string   `json:"entry_thesis"`
	GatesPassed []string `json:"gates_passed,omitempty"`

	GrossPnL    float64        `json:"gross_pnl"`
	PnLPct      float64        `json:"pnl_pct"`
	Attribution PnLAttribution `json:"attribution"`

	AdjustmentsMade  []string `json:"adjustments_made,omitempty"`
	ExitTrigger      string   `json:"exit_trigger"`
	AllRulesFollowed bool     `json:"all_rules_followed"`
	Deviations       []string `json:"deviations,omitempty"`

	WhatWorked   string `json:"what_worked"`
	WhatFailed   string `json:"what_failed"`
	RuleAddition string `json:"rule_addition"`
	Notes        string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ReviewRepository persists post-trade reviews in the core database.
type ReviewRepository struct {
	db *sql.DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create stores a review, assigning an ID and creation timestamp.
// Dates must be in YYYY-MM-DD form.
func (r *ReviewRepository) Create(ctx context.Context, review Review) (Review, error) {
	if review.Strategy == "" {
		return Review{}, fmt.Errorf("%w: strategy is required", domain.ErrInvalidInputs)
	}
	if _, err := time.Parse(reviewDateLayout, review.EntryDate); err != nil {
		return Review{}, fmt.Errorf("%w: entry_date must be YYYY-MM-DD", domain.ErrInvalidInputs)
	}
	if review.ExitDate != "" {
		if _, err := time.Parse(reviewDateLayout, review.ExitDate); err != nil {
			return Review{}, fmt.Errorf("%w: exit_date must be YYYY-MM-DD", domain.ErrInvalidInputs)
		}
	}

	review.ID = uuid.NewString()
	review.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(review)
	if err != nil {
		return Review{}, fmt.Errorf("failed to marshal review: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO trade_reviews (id, trade_id, strategy, entry_date, regime_at_entry, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ID, review.TradeID, review.Strategy, review.EntryDate,
		string(review.RegimeAtEntry.Regime), string(data),
		review.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Review{}, fmt.Errorf("failed to store review: %w", err)
	}

	return review, nil
}

// Get returns a single review by ID.
func (r *ReviewRepository) Get(ctx context.Context, id string) (Review, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM trade_reviews WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return Review{}, fmt.Errorf("%w: review %s", domain.ErrUnknownName, id)
	}
	if err != nil {
		return Review{}, fmt.Errorf("failed to get review %s: %w", id, err)
	}

	var review Review
	if err := json.Unmarshal([]byte(data), &review); err != nil {
		return Review{}, fmt.Errorf("failed to unmarshal review %s: %w", id, err)
	}

	return review, nil
}

// List returns reviews newest-first. A non-positive limit returns all rows.
func (r *ReviewRepository) List(ctx context.Context, limit int) ([]Review, error) {
	query := "SELECT data FROM trade_reviews ORDER BY created_at DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		var review Review
		if err := json.Unmarshal([]byte(data), &review); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review: %w", err)
		}
		reviews = append(reviews, review)
	}

	return reviews, rows.Err()
}

// Delete removes a review by ID.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM trade_reviews WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete review %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: review %s", domain.ErrUnknownName, id)
	}

	return nil
}
