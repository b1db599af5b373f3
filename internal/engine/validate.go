package engine

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/voltlab/volguard/internal/domain"
)

// identityTol absorbs rounding in derived fields supplied by callers.
const identityTol = 1e-6

// Validate rejects snapshots that contain NaN or infinite readings, out of
// range percentiles, or derived fields that disagree with their defining
// expressions.
func (m MarketInputs) Validate() error {
	if name := firstNonFinite(reflect.ValueOf(m), ""); name != "" {
		return fmt.Errorf("%w: field %s is not finite", domain.ErrInvalidInputs, name)
	}

	pctiles := []struct {
		name string
		v    float64
	}{
		{"vol.vix_percentile_1y", m.Vol.VIXPercentile1Y},
		{"skew.skew_pctile_1y", m.Skew.SkewPctile1Y},
		{"correlation.corr_pctile_1y", m.Correlation.CorrPctile1Y},
		{"spot.breadth_pct_above_50dma", m.Spot.BreadthPctAbove50DMA},
	}
	for _, p := range pctiles {
		if p.v < 0 || p.v > 100 {
			return fmt.Errorf("%w: %s = %g outside [0,100]", domain.ErrInvalidInputs, p.name, p.v)
		}
	}

	if m.Liquidity.BidAskWidening < 0 {
		return fmt.Errorf("%w: liquidity.bid_ask_widening = %g is negative", domain.ErrInvalidInputs, m.Liquidity.BidAskWidening)
	}

	identities := []struct {
		name string
		got  float64
		want float64
	}{
		{"vol.iv_rv_spread", m.Vol.IVRVSpread, m.Vol.IVATM1M - m.Vol.RV20D},
		{"term_structure.ts_1m_3m", m.TermStructure.TS1M3M, m.Vol.IVATM3M - m.Vol.IVATM1M},
		{"term_structure.ts_3m_6m", m.TermStructure.TS3M6M, m.Vol.IVATM6M - m.Vol.IVATM3M},
		{"correlation.dispersion", m.Correlation.Dispersion, m.Correlation.ImpliedCorr - m.Correlation.RealizedCorr20D},
	}
	for _, id := range identities {
		if math.Abs(id.got-id.want) > identityTol {
			return fmt.Errorf("%w: %s = %g, expected %g from its defining expression",
				domain.ErrInvalidInputs, id.name, id.got, id.want)
		}
	}
	return nil
}

// firstNonFinite walks exported float64 fields depth-first and returns the
// json name of the first NaN or infinite value, or "" when all are finite.
func firstNonFinite(v reflect.Value, prefix string) string {
	t := v.Type()
	if t == reflect.TypeOf(time.Time{}) {
		return ""
	}
	for i := 0; i < t.NumField(); i++ {
		f := v.Field(i)
		name := t.Field(i).Tag.Get("json")
		if prefix != "" {
			name = prefix + "." + name
		}
		switch f.Kind() {
		case reflect.Struct:
			if bad := firstNonFinite(f, name); bad != "" {
				return bad
			}
		case reflect.Float64:
			if math.IsNaN(f.Float()) || math.IsInf(f.Float(), 0) {
				return name
			}
		}
	}
	return ""
}
