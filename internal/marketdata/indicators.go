package marketdata

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/store"
)

// sectorETFs maps the eleven SPDR sector funds to sector names.
var sectorETFs = map[string]string{
	"XLK":  "technology",
	"XLF":  "financials",
	"XLV":  "healthcare",
	"XLE":  "energy",
	"XLI":  "industrials",
	"XLY":  "consumer_discretionary",
	"XLP":  "consumer_staples",
	"XLU":  "utilities",
	"XLB":  "materials",
	"XLRE": "real_estate",
	"XLC":  "communication_services",
}

// breadthUniverse is the set of symbols sampled for advance/decline and
// the above-SMA percentage. Sector funds plus the broad index trackers.
var breadthUniverse = []string{
	"XLK", "XLF", "XLV", "XLE", "XLI", "XLY", "XLP", "XLU", "XLB", "XLRE", "XLC",
	"SPY", "QQQ", "IWM", "DIA",
}

const breadthSMAWindow = 50

// Mover is a price snapshot for one instrument.
type Mover struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// Bonds holds treasury yields and the long-duration ETF.
type Bonds struct {
	US10Y       float64 `json:"us10y"`
	US3M        float64 `json:"us3m"`
	YieldSpread float64 `json:"yield_spread"`
	TLT         Mover   `json:"tlt"`
}

// Breadth summarizes market participation across the sampled universe.
type Breadth struct {
	Advancing   int     `json:"advancing"`
	Declining   int     `json:"declining"`
	PctAboveSMA float64 `json:"pct_above_sma"`
	SampleSize  int     `json:"sample_size"`
	SMAWindow   int     `json:"sma_window"`
}

// MarketIndicators is the cross-asset dashboard payload. Parts that could
// not be assembled are nil rather than failing the whole response.
type MarketIndicators struct {
	Bonds       *Bonds           `json:"bonds,omitempty"`
	Commodities map[string]Mover `json:"commodities,omitempty"`
	Sectors     map[string]Mover `json:"sectors,omitempty"`
	Breadth     *Breadth         `json:"breadth,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// IndicatorsService assembles market indicators from the active provider.
// Each part is fetched independently and cached; a failed part falls back
// to stale cached data, then to omission.
type IndicatorsService struct {
	provider  domain.Provider
	cacheRepo *store.ClientCache
	log       zerolog.Logger
}

// NewIndicatorsService creates the service. cacheRepo may be nil.
func NewIndicatorsService(provider domain.Provider, cacheRepo *store.ClientCache, log zerolog.Logger) *IndicatorsService {
	return &IndicatorsService{
		provider:  provider,
		cacheRepo: cacheRepo,
		log:       log.With().Str("component", "market_indicators").Logger(),
	}
}

// Get assembles the full indicator set. Individual part failures are
// logged and tolerated; an all-parts failure still returns a timestamped
// (mostly empty) payload rather than an error.
func (s *IndicatorsService) Get(ctx context.Context) *MarketIndicators {
	out := &MarketIndicators{Timestamp: time.Now().UTC()}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bonds := s.bonds(gctx)
		mu.Lock()
		out.Bonds = bonds
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		commodities := s.commodities(gctx)
		mu.Lock()
		out.Commodities = commodities
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		sectors := s.sectors(gctx)
		mu.Lock()
		out.Sectors = sectors
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		breadth := s.breadth(gctx)
		mu.Lock()
		out.Breadth = breadth
		mu.Unlock()
		return nil
	})

	g.Wait()
	return out
}

func (s *IndicatorsService) bonds(ctx context.Context) *Bonds {
	if cached, ok := cacheGet[Bonds](s.cacheRepo, "market_indicators", "bonds"); ok {
		return cached
	}

	// Yield index quotes arrive scaled by 10 (^TNX 42.5 means 4.25%).
	tnx, errTNX := s.provider.GetQuote(ctx, "^TNX", domain.MarketUS)
	irx, errIRX := s.provider.GetQuote(ctx, "^IRX", domain.MarketUS)
	tlt, errTLT := s.provider.GetQuote(ctx, "TLT", domain.MarketUS)
	if errTNX != nil || errIRX != nil || errTLT != nil {
		s.log.Warn().AnErr("tnx", errTNX).AnErr("irx", errIRX).AnErr("tlt", errTLT).
			Msg("Bond indicators unavailable")
		return cacheStale[Bonds](s.cacheRepo, "market_indicators", "bonds")
	}

	bonds := &Bonds{
		US10Y:       round2(tnx.Price / 10.0),
		US3M:        round2(irx.Price / 10.0),
		YieldSpread: round2((tnx.Price - irx.Price) / 10.0),
		TLT:         moverFromQuote(tlt),
	}
	s.cachePut("market_indicators", "bonds", bonds, store.TTLMarketIndicators)
	return bonds
}

func (s *IndicatorsService) commodities(ctx context.Context) map[string]Mover {
	if cached, ok := cacheGet[map[string]Mover](s.cacheRepo, "market_indicators", "commodities"); ok {
		return *cached
	}

	symbols := map[string]string{"GLD": "gold", "USO": "oil", "UUP": "dollar"}
	out := make(map[string]Mover, len(symbols))
	for symbol, name := range symbols {
		quote, err := s.provider.GetQuote(ctx, symbol, domain.MarketUS)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Commodity quote unavailable")
			continue
		}
		out[name] = moverFromQuote(quote)
	}
	if len(out) == 0 {
		if stale := cacheStale[map[string]Mover](s.cacheRepo, "market_indicators", "commodities"); stale != nil {
			return *stale
		}
		return nil
	}
	s.cachePut("market_indicators", "commodities", out, store.TTLMarketIndicators)
	return out
}

func (s *IndicatorsService) sectors(ctx context.Context) map[string]Mover {
	if cached, ok := cacheGet[map[string]Mover](s.cacheRepo, "sector_performance", "sectors"); ok {
		return *cached
	}

	out := make(map[string]Mover, len(sectorETFs))
	for symbol, name := range sectorETFs {
		quote, err := s.provider.GetQuote(ctx, symbol, domain.MarketUS)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Sector quote unavailable")
			continue
		}
		out[name] = moverFromQuote(quote)
	}
	if len(out) == 0 {
		if stale := cacheStale[map[string]Mover](s.cacheRepo, "sector_performance", "sectors"); stale != nil {
			return *stale
		}
		return nil
	}
	s.cachePut("sector_performance", "sectors", out, store.TTLSectorPerf)
	return out
}

func (s *IndicatorsService) breadth(ctx context.Context) *Breadth {
	if cached, ok := cacheGet[Breadth](s.cacheRepo, "market_breadth", "us"); ok {
		return cached
	}

	b := &Breadth{SMAWindow: breadthSMAWindow}
	aboveSMA := 0
	smaSamples := 0
	for _, symbol := range breadthUniverse {
		quote, err := s.provider.GetQuote(ctx, symbol, domain.MarketUS)
		if err != nil {
			continue
		}
		b.SampleSize++
		if quote.Change != nil {
			switch {
			case *quote.Change > 0:
				b.Advancing++
			case *quote.Change < 0:
				b.Declining++
			}
		}

		history, err := s.provider.GetPriceHistory(ctx, symbol, domain.MarketUS, "1d", breadthSMAWindow)
		if err != nil || len(history.Bars) < breadthSMAWindow/2 {
			continue
		}
		if quote.Price > sma(history.Bars) {
			aboveSMA++
		}
		smaSamples++
	}

	if b.SampleSize == 0 {
		return cacheStale[Breadth](s.cacheRepo, "market_breadth", "us")
	}
	if smaSamples > 0 {
		b.PctAboveSMA = round2(float64(aboveSMA) / float64(smaSamples) * 100.0)
	}
	s.cachePut("market_breadth", "us", b, store.TTLMarketBreadth)
	return b
}

func (s *IndicatorsService) cachePut(table, key string, data interface{}, ttl time.Duration) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Store(table, key, data, ttl); err != nil {
		s.log.Warn().Err(err).Str("table", table).Msg("Failed to cache indicator part")
	}
}

func cacheGet[T any](repo *store.ClientCache, table, key string) (*T, bool) {
	if repo == nil {
		return nil, false
	}
	data, err := repo.GetIfFresh(table, key)
	if err != nil || data == nil {
		return nil, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return &out, true
}

// cacheStale returns expired cached data, or nil. Stale data beats an
// empty dashboard section when the provider is down.
func cacheStale[T any](repo *store.ClientCache, table, key string) *T {
	if repo == nil {
		return nil
	}
	data, err := repo.Get(table, key)
	if err != nil || data == nil {
		return nil
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

func moverFromQuote(q *domain.Quote) Mover {
	m := Mover{Symbol: q.Symbol, Price: q.Price}
	if q.Change != nil {
		m.Change = round2(*q.Change)
	}
	if q.ChangePercent != nil {
		m.ChangePercent = round2(*q.ChangePercent)
	}
	return m
}

func sma(bars []domain.PriceBar) float64 {
	if len(bars) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, bar := range bars {
		sum += bar.Close
	}
	return sum / float64(len(bars))
}
