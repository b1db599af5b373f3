// Package feargreed fetches the CNN Fear & Greed index.
package feargreed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/store"
)

const cacheKey = "index"

// Component is one input of the composite index.
type Component struct {
	Score  float64 `json:"score"`
	Rating string  `json:"rating"`
}

// Index is the composite fear/greed reading with its components.
type Index struct {
	Score          float64              `json:"score"`
	Rating         string               `json:"rating"`
	Timestamp      string               `json:"timestamp"`
	PreviousClose  float64              `json:"previous_close"`
	Previous1Week  float64              `json:"previous_1_week"`
	Previous1Month float64              `json:"previous_1_month"`
	Previous1Year  float64              `json:"previous_1_year"`
	Components     map[string]Component `json:"components"`
}

// Client for a CNN-compatible fear/greed endpoint.
type Client struct {
	url       string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *store.ClientCache
}

// NewClient creates a fear/greed client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(url string, cacheRepo *store.ClientCache, log zerolog.Logger) *Client {
	return &Client{
		url:       url,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "feargreed").Logger(),
		cacheRepo: cacheRepo,
	}
}

// upstream mirrors the CNN response shape. Component keys arrive as
// top-level siblings of "fear_and_greed".
type upstream struct {
	FearAndGreed struct {
		Score          float64 `json:"score"`
		Rating         string  `json:"rating"`
		Timestamp      string  `json:"timestamp"`
		PreviousClose  float64 `json:"previous_close"`
		Previous1Week  float64 `json:"previous_1_week"`
		Previous1Month float64 `json:"previous_1_month"`
		Previous1Year  float64 `json:"previous_1_year"`
	} `json:"fear_and_greed"`

	MarketMomentum     *Component `json:"market_momentum_sp500"`
	StockPriceStrength *Component `json:"stock_price_strength"`
	StockPriceBreadth  *Component `json:"stock_price_breadth"`
	PutCallOptions     *Component `json:"put_call_options"`
	MarketVolatility   *Component `json:"market_volatility_vix"`
	JunkBondDemand     *Component `json:"junk_bond_demand"`
	SafeHavenDemand    *Component `json:"safe_haven_demand"`
}

// GetIndex fetches the index with cache. If the upstream fails, returns
// stale cached data if available (stale data > no data).
func (c *Client) GetIndex(ctx context.Context) (*Index, error) {
	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("fear_greed", cacheKey)
		if err == nil && data != nil {
			var cached Index
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Float64("score", cached.Score).Msg("Cache hit")
				return &cached, nil
			}
		}
	}

	index, err := c.fetch(ctx)
	if err != nil {
		if stale, ok := c.getStaleFromCache(); ok {
			c.log.Warn().Err(err).Msg("Upstream failed, using stale cached index")
			return stale, nil
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("fear_greed", cacheKey, index, store.TTLFearGreed); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache fear/greed index")
		}
	}

	c.log.Info().Float64("score", index.Score).Str("rating", index.Rating).Msg("Fetched fear/greed index")
	return index, nil
}

func (c *Client) fetch(ctx context.Context) (*Index, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	// The upstream rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; volguard/1.0)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fear/greed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fear/greed upstream returned status %d", resp.StatusCode)
	}

	var raw upstream
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse fear/greed response: %w", err)
	}

	index := &Index{
		Score:          raw.FearAndGreed.Score,
		Rating:         raw.FearAndGreed.Rating,
		Timestamp:      raw.FearAndGreed.Timestamp,
		PreviousClose:  raw.FearAndGreed.PreviousClose,
		Previous1Week:  raw.FearAndGreed.Previous1Week,
		Previous1Month: raw.FearAndGreed.Previous1Month,
		Previous1Year:  raw.FearAndGreed.Previous1Year,
		Components:     map[string]Component{},
	}
	for name, component := range map[string]*Component{
		"market_momentum":      raw.MarketMomentum,
		"stock_price_strength": raw.StockPriceStrength,
		"stock_price_breadth":  raw.StockPriceBreadth,
		"put_call_options":     raw.PutCallOptions,
		"market_volatility":    raw.MarketVolatility,
		"junk_bond_demand":     raw.JunkBondDemand,
		"safe_haven_demand":    raw.SafeHavenDemand,
	} {
		if component != nil {
			index.Components[name] = *component
		}
	}
	return index, nil
}

func (c *Client) getStaleFromCache() (*Index, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}
	data, err := c.cacheRepo.Get("fear_greed", cacheKey)
	if err != nil || data == nil {
		return nil, false
	}
	var cached Index
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	return &cached, true
}
