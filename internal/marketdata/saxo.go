package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/voltlab/volguard/internal/domain"
)

const (
	saxoSimBaseURL  = "https://gateway.saxobank.com/sim/openapi"
	saxoLiveBaseURL = "https://gateway.saxobank.com/openapi"
)

// saxoHorizons maps bar intervals to the chart horizon in minutes.
var saxoHorizons = map[string]int{
	"5m": 60,
	"1h": 1440,
	"1d": 10080,
}

// SaxoProvider serves market data from the Saxo Bank OpenAPI. It needs an
// OAuth2 access token; the "sim" environment points at the simulation
// gateway.
type SaxoProvider struct {
	baseURL     string
	accessToken string
	client      *http.Client
	log         zerolog.Logger
}

// NewSaxoProvider creates a Saxo OpenAPI provider.
func NewSaxoProvider(accessToken, environment string, log zerolog.Logger) *SaxoProvider {
	baseURL := saxoSimBaseURL
	if environment == "live" {
		baseURL = saxoLiveBaseURL
	}
	return &SaxoProvider{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log.With().Str("client", "saxo").Logger(),
	}
}

func (p *SaxoProvider) Name() string { return "saxo" }

func (p *SaxoProvider) SupportedMarkets() []domain.Market { return domain.AllMarkets }

func (p *SaxoProvider) SupportsMarket(market domain.Market) bool {
	for _, m := range domain.AllMarkets {
		if m == market {
			return true
		}
	}
	return false
}

func saxoExchangeID(market domain.Market) string {
	switch market {
	case domain.MarketJP:
		return "TSE"
	case domain.MarketHK:
		return "HKEX"
	default:
		return "NYSE"
	}
}

func (p *SaxoProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: saxo request failed: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: saxo returned status %d for %s", domain.ErrProviderUnavailable, resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to parse saxo response: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}

type saxoInstrument struct {
	Identifier  int    `json:"Identifier"`
	Symbol      string `json:"Symbol"`
	AssetType   string `json:"AssetType"`
	Description string `json:"Description"`
}

// searchInstrument resolves a ticker to Saxo's UIC identifier.
func (p *SaxoProvider) searchInstrument(ctx context.Context, symbol string, market domain.Market, assetTypes string) (*saxoInstrument, error) {
	clean := cleanSymbol(symbol)
	params := url.Values{
		"Keywords":   {clean},
		"AssetTypes": {assetTypes},
		"ExchangeId": {saxoExchangeID(market)},
	}

	var result struct {
		Data []saxoInstrument `json:"Data"`
	}
	if err := p.get(ctx, "/ref/v1/instruments", params, &result); err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: no saxo instrument for %s", domain.ErrUnknownName, symbol)
	}

	for i := range result.Data {
		if strings.EqualFold(result.Data[i].Symbol, clean) {
			return &result.Data[i], nil
		}
	}
	return &result.Data[0], nil
}

type saxoInfoPrice struct {
	Quote struct {
		Mid *float64 `json:"Mid"`
		Bid *float64 `json:"Bid"`
		Ask *float64 `json:"Ask"`
	} `json:"Quote"`
	PriceInfo struct {
		Volume int64 `json:"Volume"`
	} `json:"PriceInfo"`
	DisplayAndFormat struct {
		ExpiryDate string  `json:"ExpiryDate"`
		Strike     float64 `json:"Strike"`
	} `json:"DisplayAndFormat"`
	Greeks map[string]float64 `json:"Greeks"`
}

func (p *SaxoProvider) infoPrice(ctx context.Context, uic int, assetType string) (*saxoInfoPrice, error) {
	params := url.Values{
		"Uic":         {strconv.Itoa(uic)},
		"AssetType":   {assetType},
		"FieldGroups": {"DisplayAndFormat,InstrumentPriceDetails,PriceInfo,Quote"},
	}
	var price saxoInfoPrice
	if err := p.get(ctx, "/trade/v1/infoprices", params, &price); err != nil {
		return nil, err
	}
	return &price, nil
}

func (p *SaxoProvider) GetQuote(ctx context.Context, symbol string, market domain.Market) (*domain.Quote, error) {
	instrument, err := p.searchInstrument(ctx, symbol, market, "Stock,StockOption")
	if err != nil {
		return nil, err
	}

	price, err := p.infoPrice(ctx, instrument.Identifier, instrument.AssetType)
	if err != nil {
		return nil, err
	}

	level := 0.0
	if price.Quote.Mid != nil {
		level = *price.Quote.Mid
	} else if price.Quote.Ask != nil {
		level = *price.Quote.Ask
	}

	return &domain.Quote{
		Symbol:    symbol,
		Market:    market,
		Price:     level,
		Bid:       price.Quote.Bid,
		Ask:       price.Quote.Ask,
		Volume:    price.PriceInfo.Volume,
		Timestamp: marketTime(market),
	}, nil
}

func (p *SaxoProvider) GetOptionChain(ctx context.Context, symbol string, market domain.Market, expiration *time.Time) (*domain.OptionChain, error) {
	params := url.Values{
		"Keywords":   {cleanSymbol(symbol)},
		"AssetTypes": {"StockOption"},
		"ExchangeId": {saxoExchangeID(market)},
	}
	var result struct {
		Data []saxoInstrument `json:"Data"`
	}
	if err := p.get(ctx, "/ref/v1/instruments", params, &result); err != nil {
		return nil, err
	}

	var calls, puts []domain.OptionContract
	seen := map[time.Time]struct{}{}
	var expirations []time.Time

	for _, opt := range result.Data {
		if opt.AssetType != "StockOption" {
			continue
		}
		price, err := p.infoPrice(ctx, opt.Identifier, "StockOption")
		if err != nil {
			continue
		}
		expStr := price.DisplayAndFormat.ExpiryDate
		if len(expStr) < 10 {
			continue
		}
		exp, err := time.Parse("2006-01-02", expStr[:10])
		if err != nil {
			continue
		}
		if expiration != nil && !sameDate(exp, *expiration) {
			continue
		}
		if _, ok := seen[exp]; !ok {
			seen[exp] = struct{}{}
			expirations = append(expirations, exp)
		}

		var greeks *domain.Greeks
		var iv *float64
		if len(price.Greeks) > 0 {
			greeks = &domain.Greeks{
				Delta: price.Greeks["Delta"],
				Gamma: price.Greeks["Gamma"],
				Theta: price.Greeks["Theta"],
				Vega:  price.Greeks["Vega"],
				Rho:   price.Greeks["Rho"],
			}
			if v, ok := price.Greeks["ImpliedVolatility"]; ok {
				iv = domain.Float64Ptr(v)
			}
		}

		contract := domain.OptionContract{
			Symbol:            opt.Symbol,
			Underlying:        symbol,
			Strike:            price.DisplayAndFormat.Strike,
			Expiration:        exp,
			Bid:               price.Quote.Bid,
			Ask:               price.Quote.Ask,
			LastPrice:         price.Quote.Mid,
			ImpliedVolatility: iv,
			Greeks:            greeks,
		}
		if isCallDescription(opt.Description, opt.Symbol) {
			contract.OptionType = domain.OptionTypeCall
			calls = append(calls, contract)
		} else {
			contract.OptionType = domain.OptionTypePut
			puts = append(puts, contract)
		}
	}

	sort.Slice(expirations, func(i, j int) bool { return expirations[i].Before(expirations[j]) })

	return &domain.OptionChain{
		Underlying:  symbol,
		Market:      market,
		Expirations: expirations,
		Calls:       calls,
		Puts:        puts,
		Timestamp:   marketTime(market),
	}, nil
}

// GetVolatilitySurface builds a grid from the chain's implied vols; missing
// cells stay zero.
func (p *SaxoProvider) GetVolatilitySurface(ctx context.Context, symbol string, market domain.Market) (*domain.VolatilitySurface, error) {
	chain, err := p.GetOptionChain(ctx, symbol, market, nil)
	if err != nil {
		return nil, err
	}
	return surfaceFromChain(chain), nil
}

func (p *SaxoProvider) GetPriceHistory(ctx context.Context, symbol string, market domain.Market, interval string, limit int) (*domain.PriceHistory, error) {
	instrument, err := p.searchInstrument(ctx, symbol, market, "Stock")
	if err != nil {
		return nil, err
	}

	horizon, ok := saxoHorizons[interval]
	if !ok {
		horizon = saxoHorizons["1d"]
	}
	params := url.Values{
		"Uic":       {strconv.Itoa(instrument.Identifier)},
		"AssetType": {instrument.AssetType},
		"Horizon":   {strconv.Itoa(horizon)},
		"Count":     {strconv.Itoa(limit)},
	}

	var result struct {
		Data []struct {
			Time   string  `json:"Time"`
			Open   float64 `json:"Open"`
			High   float64 `json:"High"`
			Low    float64 `json:"Low"`
			Close  float64 `json:"Close"`
			Volume int64   `json:"Volume"`
		} `json:"Data"`
	}
	if err := p.get(ctx, "/chart/v1/charts", params, &result); err != nil {
		return nil, err
	}

	bars := make([]domain.PriceBar, 0, len(result.Data))
	for _, bar := range result.Data {
		ts, err := time.Parse(time.RFC3339, bar.Time)
		if err != nil {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Timestamp: ts,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
		})
	}

	return &domain.PriceHistory{Symbol: symbol, Market: market, Interval: interval, Bars: bars}, nil
}

// surfaceFromChain arranges a chain's per-contract IVs into the grid model.
func surfaceFromChain(chain *domain.OptionChain) *domain.VolatilitySurface {
	strikeSet := map[float64]struct{}{}
	for _, c := range chain.Calls {
		if c.Strike > 0 {
			strikeSet[c.Strike] = struct{}{}
		}
	}
	strikes := make([]float64, 0, len(strikeSet))
	for s := range strikeSet {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)

	ivAt := func(contracts []domain.OptionContract, exp time.Time, strike float64) float64 {
		for _, c := range contracts {
			if c.Strike == strike && c.Expiration.Equal(exp) && c.ImpliedVolatility != nil {
				return *c.ImpliedVolatility
			}
		}
		return 0
	}

	callIVs := make([][]float64, len(chain.Expirations))
	putIVs := make([][]float64, len(chain.Expirations))
	for i, exp := range chain.Expirations {
		callRow := make([]float64, len(strikes))
		putRow := make([]float64, len(strikes))
		for j, strike := range strikes {
			callRow[j] = ivAt(chain.Calls, exp, strike)
			putRow[j] = ivAt(chain.Puts, exp, strike)
		}
		callIVs[i] = callRow
		putIVs[i] = putRow
	}

	return &domain.VolatilitySurface{
		Symbol:      chain.Underlying,
		Market:      chain.Market,
		Strikes:     strikes,
		Expirations: chain.Expirations,
		CallIVs:     callIVs,
		PutIVs:      putIVs,
		Timestamp:   chain.Timestamp,
	}
}

// cleanSymbol strips the market suffix carried by JP and HK tickers.
func cleanSymbol(symbol string) string {
	symbol = strings.TrimSuffix(symbol, ".T")
	return strings.TrimSuffix(symbol, ".HK")
}

func isCallDescription(description, symbol string) bool {
	return strings.Contains(description, "Call") || strings.Contains(strings.ToUpper(symbol), "C")
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
