package engine

import (
	"fmt"
	"strings"

	"github.com/voltlab/volguard/internal/domain"
)

// PutSellingPerformance is one row of the put selling backtest by delta
// (GS 10-year study).
type PutSellingPerformance struct {
	Delta      int     `json:"delta"`
	AnnReturn  float64 `json:"ann_return"`
	Sharpe     float64 `json:"sharpe"`
	StdDev     float64 `json:"std_dev"`
	WinRate    float64 `json:"win_rate"`
	AvgPremium float64 `json:"avg_premium"`
}

// OverwritingPerformance is one row of the overwriting backtest by free cash
// flow yield quintile (GS 16-year study).
type OverwritingPerformance struct {
	FCFQuintile string  `json:"fcf_quintile"`
	AnnReturn   float64 `json:"ann_return"`
	Sharpe      float64 `json:"sharpe"`
	StdDev      float64 `json:"std_dev"`
}

// HedgingComparison is one row of the hedging strategy comparison (GS
// 27-year backtest).
type HedgingComparison struct {
	Strategy  string  `json:"strategy"`
	AnnReturn float64 `json:"ann_return"`
	Vol       float64 `json:"vol"`
	Sharpe    float64 `json:"sharpe"`
	MaxDD     float64 `json:"max_dd"`
}

// SectorEventSensitivity is one row of macro event sensitivity by sector
// (GS 15-year study). Values are regression betas per event category.
type SectorEventSensitivity struct {
	Sector     string  `json:"sector"`
	Activity   float64 `json:"activity"`
	Credit     float64 `json:"credit"`
	Employment float64 `json:"employment"`
	Housing    float64 `json:"housing"`
	Oil        float64 `json:"oil"`
	Policy     float64 `json:"policy"`
	Prices     float64 `json:"prices"`
}

// GlobalVolLevel is one row of global index vol levels and percentiles (JPM).
type GlobalVolLevel struct {
	Index           string  `json:"index"`
	IV1M            float64 `json:"iv_1m"`
	Pctile1M5Y      float64 `json:"pctile_1m_5y"`
	IV3M            float64 `json:"iv_3m"`
	Pctile3M5Y      float64 `json:"pctile_3m_5y"`
	VarianceBasis1M float64 `json:"variance_basis_1m"`
}

// ZeroDTEVolPremium is one row of 0DTE day-of-week vol premium (JPM).
type ZeroDTEVolPremium struct {
	Day            string `json:"day"`
	NDXPremium     string `json:"ndx_premium"`
	GammaImbalance string `json:"gamma_imbalance"`
	Bias           string `json:"bias"`
}

// VolRiskPremium is one row of the vol risk premium matrix by tenor and
// moneyness (JPM Systematic Vol).
type VolRiskPremium struct {
	Tenor  string `json:"tenor"`
	ATM    int    `json:"atm"`
	OTM25D int    `json:"otm_25d"`
	OTM10D int    `json:"otm_10d"`
	OTM5D  int    `json:"otm_5d"`
}

// TailTradingPerformance is one row of the three-pillar tail trading
// backtest (JPM). Partial-year rows report return only.
type TailTradingPerformance struct {
	Configuration string   `json:"configuration"`
	AnnReturn     float64  `json:"ann_return"`
	Vol           *float64 `json:"vol,omitempty"`
	Sharpe        *float64 `json:"sharpe,omitempty"`
	MaxDD         *float64 `json:"max_dd,omitempty"`
}

var putSellingTable = []PutSellingPerformance{
	{Delta: 70, AnnReturn: 7.1, Sharpe: 0.50, StdDev: 17.0, WinRate: 0.68, AvgPremium: 0.24},
	{Delta: 60, AnnReturn: 6.9, Sharpe: 0.51, StdDev: 16.0, WinRate: 0.56, AvgPremium: 0.19},
	{Delta: 50, AnnReturn: 6.3, Sharpe: 0.50, StdDev: 14.5, WinRate: 0.44, AvgPremium: 0.14},
	{Delta: 40, AnnReturn: 5.6, Sharpe: 0.50, StdDev: 12.6, WinRate: 0.32, AvgPremium: 0.10},
	{Delta: 30, AnnReturn: 4.8, Sharpe: 0.50, StdDev: 10.1, WinRate: 0.23, AvgPremium: 0.07},
	{Delta: 20, AnnReturn: 3.8, Sharpe: 0.54, StdDev: 7.6, WinRate: 0.15, AvgPremium: 0.04},
}

var overwritingTable = []OverwritingPerformance{
	{FCFQuintile: "Q1 (Low)", AnnReturn: 2.6, Sharpe: 0.27, StdDev: 13.0},
	{FCFQuintile: "Q2", AnnReturn: 6.1, Sharpe: 0.62, StdDev: 11.0},
	{FCFQuintile: "Q3", AnnReturn: 7.9, Sharpe: 0.92, StdDev: 9.0},
	{FCFQuintile: "Q4", AnnReturn: 7.9, Sharpe: 0.91, StdDev: 9.0},
	{FCFQuintile: "Q5 (High)", AnnReturn: 8.8, Sharpe: 0.90, StdDev: 10.0},
}

var hedgingTable = []HedgingComparison{
	{Strategy: "S&P 500 (unhedged)", AnnReturn: 9.2, Vol: 18.2, Sharpe: 0.51, MaxDD: -38.0},
	{Strategy: "Put Spread Collar 3m/3m", AnnReturn: 7.6, Vol: 8.8, Sharpe: 0.88, MaxDD: -14.0},
	{Strategy: "Long Put (monthly roll)", AnnReturn: 6.0, Vol: 10.8, Sharpe: 0.56, MaxDD: -13.0},
	{Strategy: "Put Spread", AnnReturn: 7.5, Vol: 13.5, Sharpe: 0.56, MaxDD: -17.0},
	{Strategy: "Covered Call (10% OTM)", AnnReturn: 10.7, Vol: 14.0, Sharpe: 0.76, MaxDD: -25.0},
	{Strategy: "Put Selling (10% OTM)", AnnReturn: 5.5, Vol: 7.0, Sharpe: 0.76, MaxDD: -22.0},
}

var sectorSensitivityTable = []SectorEventSensitivity{
	{Sector: "Energy", Activity: 0.1, Credit: 0.2, Employment: 0.1, Housing: 0.1, Oil: 0.8, Policy: 0.1, Prices: 0.4},
	{Sector: "Real Estate", Activity: 0.1, Credit: 0.4, Employment: 0.3, Housing: 0.8, Oil: 0.1, Policy: 0.3, Prices: 0.1},
	{Sector: "Financials", Activity: 0.1, Credit: 0.5, Employment: 0.1, Housing: 0.4, Oil: 0.1, Policy: 0.4, Prices: 0.3},
	{Sector: "Tech", Activity: 0.1, Credit: 0.1, Employment: 0.2, Housing: 0.1, Oil: 0.1, Policy: 0.2, Prices: 0.2},
	{Sector: "Healthcare", Activity: 0.1, Credit: 0.1, Employment: 0.1, Housing: 0.1, Oil: 0.1, Policy: 0.2, Prices: 0.1},
}

var globalVolTable = []GlobalVolLevel{
	{Index: "SPX", IV1M: 21.2, Pctile1M5Y: 15.5, IV3M: 22.5, Pctile3M5Y: 18.2, VarianceBasis1M: -3.3},
	{Index: "NDX", IV1M: 19.0, Pctile1M5Y: 12.5, IV3M: 21.0, Pctile3M5Y: 10.5, VarianceBasis1M: 7.7},
	{Index: "DAX", IV1M: 15.2, Pctile1M5Y: 23.4, IV3M: 15.9, Pctile3M5Y: 24.1, VarianceBasis1M: -6.3},
	{Index: "HSCEI", IV1M: 22.1, Pctile1M5Y: 15.2, IV3M: 22.4, Pctile3M5Y: 24.3, VarianceBasis1M: 0.0},
}

var zeroDTEPremiumTable = []ZeroDTEVolPremium{
	{Day: "Monday", NDXPremium: "3.2-4.5%", GammaImbalance: "-175 to -125bps", Bias: "SELL"},
	{Day: "Tuesday", NDXPremium: "3.2-4.5%", GammaImbalance: "-125 to -100bps", Bias: "SELL"},
	{Day: "Wednesday", NDXPremium: "2.2-2.5%", GammaImbalance: "-50bps", Bias: "AVOID/BUY"},
	{Day: "Thursday", NDXPremium: "2.2-2.5%", GammaImbalance: "-75bps", Bias: "SELECTIVE"},
	{Day: "Friday", NDXPremium: "3.0-3.5%", GammaImbalance: "-150bps", Bias: "SELL"},
}

var volRiskPremiumTable = []VolRiskPremium{
	{Tenor: "2Y", ATM: 42, OTM25D: 25, OTM10D: 12, OTM5D: 3},
	{Tenor: "5Y", ATM: 16, OTM25D: 10, OTM10D: 5, OTM5D: 3},
	{Tenor: "10Y", ATM: 7, OTM25D: 3, OTM10D: -1, OTM5D: -3},
	{Tenor: "20Y", ATM: 2, OTM25D: -3, OTM10D: -8, OTM5D: -12},
}

var tailTradingTable = []TailTradingPerformance{
	{Configuration: "SPX only", AnnReturn: 12.5, Vol: fptr(18.2), Sharpe: fptr(0.69), MaxDD: fptr(-31.0)},
	{Configuration: "SPX + Put Spread", AnnReturn: 10.2, Vol: fptr(14.8), Sharpe: fptr(0.69), MaxDD: fptr(-12.0)},
	{Configuration: "SPX + Tail + Put Spread", AnnReturn: 17.1, Vol: fptr(15.4), Sharpe: fptr(1.11), MaxDD: fptr(-17.6)},
	{Configuration: "2025 YTD: PS only", AnnReturn: 0.8},
	{Configuration: "2025 YTD: PS + Tail", AnnReturn: 7.6},
}

// referenceTableOrder fixes the listing order of the eight tables.
var referenceTableOrder = []string{
	"put_selling",
	"overwriting",
	"hedging",
	"sector_sensitivity",
	"global_vol",
	"zero_dte_premium",
	"vol_risk_premium",
	"tail_trading",
}

var referenceTables = map[string]any{
	"put_selling":        putSellingTable,
	"overwriting":        overwritingTable,
	"hedging":            hedgingTable,
	"sector_sensitivity": sectorSensitivityTable,
	"global_vol":         globalVolTable,
	"zero_dte_premium":   zeroDTEPremiumTable,
	"vol_risk_premium":   volRiskPremiumTable,
	"tail_trading":       tailTradingTable,
}

// ReferenceTableNames lists the available reference tables.
func ReferenceTableNames() []string {
	return append([]string{}, referenceTableOrder...)
}

// ReferenceTable returns a reference table's rows by name. The concrete row
// type depends on the table; callers serialize it as-is.
func ReferenceTable(name string) (any, error) {
	t, ok := referenceTables[name]
	if !ok {
		return nil, fmt.Errorf("%w: table %q (available: %s)",
			domain.ErrUnknownName, name, strings.Join(referenceTableOrder, ", "))
	}
	return t, nil
}
