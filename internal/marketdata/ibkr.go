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

// Snapshot field codes used by the gateway: last, change, change percent,
// bid, ask, volume.
const ibkrSnapshotFields = "31,82,83,84,86,87"

// ibkrBarSizes maps bar intervals to gateway (period, bar) pairs.
var ibkrBarSizes = map[string][2]string{
	"5m": {"1d", "5min"},
	"1h": {"1w", "1h"},
	"1d": {"3m", "1d"},
}

// Index tickers need their gateway aliases; everything else searches as a
// stock symbol.
var ibkrIndexAliases = map[string]string{
	"VIX":   "VIX",
	"^VIX":  "VIX",
	"^TNX":  "TNX",
	"^IRX":  "IRX",
	"^GSPC": "SPX",
	"^DJI":  "INDU",
	"NKY":   "N225",
	"HSI":   "HSI",
}

// IBKRProvider serves market data from an Interactive Brokers Client Portal
// gateway. The gateway handles the TWS session; this client only speaks its
// local REST surface.
type IBKRProvider struct {
	baseURL  string
	clientID int
	client   *http.Client
	log      zerolog.Logger
}

// NewIBKRProvider creates a provider against the gateway at host:port.
func NewIBKRProvider(host string, port, clientID int, log zerolog.Logger) *IBKRProvider {
	return &IBKRProvider{
		baseURL:  fmt.Sprintf("http://%s:%d/v1/api", host, port),
		clientID: clientID,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log.With().Str("client", "ibkr").Logger(),
	}
}

func (p *IBKRProvider) Name() string { return "ibkr" }

func (p *IBKRProvider) SupportedMarkets() []domain.Market { return domain.AllMarkets }

func (p *IBKRProvider) SupportsMarket(market domain.Market) bool {
	for _, m := range domain.AllMarkets {
		if m == market {
			return true
		}
	}
	return false
}

func (p *IBKRProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ibkr gateway unreachable: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ibkr gateway returned status %d for %s", domain.ErrProviderUnavailable, resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to parse ibkr response: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}

// searchConID resolves a ticker to the gateway's contract ID.
func (p *IBKRProvider) searchConID(ctx context.Context, symbol string, market domain.Market) (int, error) {
	search := cleanSymbol(symbol)
	if alias, ok := ibkrIndexAliases[symbol]; ok {
		search = alias
	}

	var results []struct {
		ConID       json.Number `json:"conid"`
		Symbol      string      `json:"symbol"`
		Description string      `json:"description"`
	}
	if err := p.get(ctx, "/iserver/secdef/search", url.Values{"symbol": {search}}, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("%w: no ibkr contract for %s", domain.ErrUnknownName, symbol)
	}

	for _, result := range results {
		if strings.EqualFold(result.Symbol, search) {
			conID, err := result.ConID.Int64()
			return int(conID), err
		}
	}
	conID, err := results[0].ConID.Int64()
	return int(conID), err
}

func (p *IBKRProvider) GetQuote(ctx context.Context, symbol string, market domain.Market) (*domain.Quote, error) {
	conID, err := p.searchConID(ctx, symbol, market)
	if err != nil {
		return nil, err
	}

	var snapshots []map[string]any
	params := url.Values{
		"conids": {strconv.Itoa(conID)},
		"fields": {ibkrSnapshotFields},
	}
	if err := p.get(ctx, "/iserver/marketdata/snapshot", params, &snapshots); err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("%w: empty ibkr snapshot for %s", domain.ErrProviderUnavailable, symbol)
	}
	snap := snapshots[0]

	price := 0.0
	if v := safeFloat(snap["31"]); v != nil {
		price = *v
	}
	volume := int64(0)
	if v := safeFloat(snap["87"]); v != nil {
		volume = int64(*v)
	}

	return &domain.Quote{
		Symbol:        symbol,
		Market:        market,
		Price:         price,
		Change:        safeFloat(snap["82"]),
		ChangePercent: safeFloat(snap["83"]),
		Bid:           safeFloat(snap["84"]),
		Ask:           safeFloat(snap["86"]),
		Volume:        volume,
		Timestamp:     marketTime(market),
	}, nil
}

func (p *IBKRProvider) GetOptionChain(ctx context.Context, symbol string, market domain.Market, expiration *time.Time) (*domain.OptionChain, error) {
	conID, err := p.searchConID(ctx, symbol, market)
	if err != nil {
		return nil, err
	}

	quote, err := p.GetQuote(ctx, symbol, market)
	if err != nil {
		return nil, err
	}
	spot := quote.Price
	if spot <= 0 {
		spot = 100.0
	}

	months, err := p.optionMonths(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if expiration != nil {
		months = []string{expiration.Format("Jan06")}
	} else if len(months) > 1 {
		months = months[:1]
	}
	if len(months) == 0 {
		return &domain.OptionChain{Underlying: symbol, Market: market, Timestamp: marketTime(market)}, nil
	}
	month := strings.ToUpper(months[0])

	var strikesResult struct {
		Call []float64 `json:"call"`
		Put  []float64 `json:"put"`
	}
	params := url.Values{
		"conid":   {strconv.Itoa(conID)},
		"sectype": {"OPT"},
		"month":   {month},
	}
	if err := p.get(ctx, "/iserver/secdef/strikes", params, &strikesResult); err != nil {
		return nil, err
	}

	// Keep the chain request count bounded: strikes within 10% of spot,
	// at most 11.
	var strikes []float64
	for _, strike := range strikesResult.Call {
		if strike >= spot*0.9 && strike <= spot*1.1 {
			strikes = append(strikes, strike)
		}
		if len(strikes) == 11 {
			break
		}
	}

	var calls, puts []domain.OptionContract
	seen := map[time.Time]struct{}{}
	var expirations []time.Time
	for _, strike := range strikes {
		for _, right := range []string{"C", "P"} {
			contract, err := p.optionInfo(ctx, conID, symbol, month, strike, right)
			if err != nil {
				continue
			}
			if _, ok := seen[contract.Expiration]; !ok {
				seen[contract.Expiration] = struct{}{}
				expirations = append(expirations, contract.Expiration)
			}
			if right == "C" {
				calls = append(calls, *contract)
			} else {
				puts = append(puts, *contract)
			}
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

// optionMonths lists the contract months the gateway offers for a symbol.
func (p *IBKRProvider) optionMonths(ctx context.Context, symbol string) ([]string, error) {
	var results []struct {
		Symbol   string `json:"symbol"`
		Sections []struct {
			SecType string `json:"secType"`
			Months  string `json:"months"` // semicolon separated, e.g. "SEP26;OCT26"
		} `json:"sections"`
	}
	if err := p.get(ctx, "/iserver/secdef/search", url.Values{"symbol": {cleanSymbol(symbol)}}, &results); err != nil {
		return nil, err
	}
	for _, result := range results {
		for _, section := range result.Sections {
			if section.SecType == "OPT" && section.Months != "" {
				return strings.Split(section.Months, ";"), nil
			}
		}
	}
	return nil, nil
}

func (p *IBKRProvider) optionInfo(ctx context.Context, underlyingConID int, symbol, month string, strike float64, right string) (*domain.OptionContract, error) {
	var results []struct {
		ConID        json.Number `json:"conid"`
		MaturityDate string      `json:"maturityDate"` // YYYYMMDD
	}
	params := url.Values{
		"conid":   {strconv.Itoa(underlyingConID)},
		"sectype": {"OPT"},
		"month":   {month},
		"strike":  {strconv.FormatFloat(strike, 'f', -1, 64)},
		"right":   {right},
	}
	if err := p.get(ctx, "/iserver/secdef/info", params, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no contract for %s %s %g%s", symbol, month, strike, right)
	}

	exp, err := time.Parse("20060102", results[0].MaturityDate)
	if err != nil {
		return nil, err
	}

	optType := domain.OptionTypePut
	if right == "C" {
		optType = domain.OptionTypeCall
	}
	contract := &domain.OptionContract{
		Symbol:     fmt.Sprintf("%s%s%s%d", cleanSymbol(symbol), exp.Format("060102"), right, int(strike)),
		Underlying: symbol,
		Strike:     strike,
		Expiration: exp,
		OptionType: optType,
	}

	// Best effort quote enrichment; the bare contract is still useful.
	var snapshots []map[string]any
	snapParams := url.Values{
		"conids": {results[0].ConID.String()},
		"fields": {ibkrSnapshotFields},
	}
	if err := p.get(ctx, "/iserver/marketdata/snapshot", snapParams, &snapshots); err == nil && len(snapshots) > 0 {
		snap := snapshots[0]
		contract.Bid = safeFloat(snap["84"])
		contract.Ask = safeFloat(snap["86"])
		contract.LastPrice = safeFloat(snap["31"])
		if v := safeFloat(snap["87"]); v != nil {
			contract.Volume = int64(*v)
		}
	}
	return contract, nil
}

func (p *IBKRProvider) GetVolatilitySurface(ctx context.Context, symbol string, market domain.Market) (*domain.VolatilitySurface, error) {
	chain, err := p.GetOptionChain(ctx, symbol, market, nil)
	if err != nil {
		return nil, err
	}
	return surfaceFromChain(chain), nil
}

func (p *IBKRProvider) GetPriceHistory(ctx context.Context, symbol string, market domain.Market, interval string, limit int) (*domain.PriceHistory, error) {
	conID, err := p.searchConID(ctx, symbol, market)
	if err != nil {
		return nil, err
	}

	size, ok := ibkrBarSizes[interval]
	if !ok {
		size = ibkrBarSizes["1d"]
	}
	params := url.Values{
		"conid":      {strconv.Itoa(conID)},
		"period":     {size[0]},
		"bar":        {size[1]},
		"outsideRth": {"false"},
	}

	var result struct {
		Data []struct {
			O float64 `json:"o"`
			H float64 `json:"h"`
			L float64 `json:"l"`
			C float64 `json:"c"`
			V float64 `json:"v"`
			T int64   `json:"t"` // epoch millis
		} `json:"data"`
	}
	if err := p.get(ctx, "/iserver/marketdata/history", params, &result); err != nil {
		return nil, err
	}

	data := result.Data
	if limit > 0 && len(data) > limit {
		data = data[len(data)-limit:]
	}
	bars := make([]domain.PriceBar, 0, len(data))
	for _, bar := range data {
		bars = append(bars, domain.PriceBar{
			Timestamp: time.UnixMilli(bar.T).UTC(),
			Open:      bar.O,
			High:      bar.H,
			Low:       bar.L,
			Close:     bar.C,
			Volume:    int64(bar.V),
		})
	}

	return &domain.PriceHistory{Symbol: symbol, Market: market, Interval: interval, Bars: bars}, nil
}
