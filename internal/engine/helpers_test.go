package engine

import "time"

// testInputs returns a benign NORMAL-regime snapshot. Derived fields are
// kept consistent with their defining expressions so Validate passes.
func testInputs() MarketInputs {
	const (
		vix  = 17.5
		iv1m = 17.0
		iv3m = 18.5
		iv6m = 19.2
		rv20 = 14.2
	)
	return MarketInputs{
		Spot: SpotData{
			SPXLevel:             5850.0,
			SPXRet1D:             0.003,
			SPXRet5D:             0.012,
			SPXRet20D:            0.025,
			SPXSMA50:             5780.0,
			SPXSMA200:            5520.0,
			BreadthPctAbove50DMA: 62.0,
		},
		Vol: VolData{
			VIX:             vix,
			VIX1DChange:     -0.3,
			VIX5DChange:     -1.2,
			VIXPercentile1Y: 42.0,
			VVIX:            19.5,
			VIX9D:           16.8,
			IVATM1M:         iv1m,
			IVATM3M:         iv3m,
			IVATM6M:         iv6m,
			RV10D:           15.1,
			RV20D:           rv20,
			RV30D:           14.8,
			IVRVSpread:      iv1m - rv20,
		},
		Skew: SkewData{
			PutSkew25D1M:    5.2,
			PutSkew25D3M:    5.8,
			RiskReversal25D: -4.5,
			SkewPctile1Y:    48.0,
		},
		TermStructure: TermStructureData{
			TS1M3M:       iv3m - iv1m,
			TS3M6M:       iv6m - iv3m,
			TSSlope:      0.8,
			VIXFutures1M: 18.2,
			VIXFutures3M: 19.5,
			RollYield:    (18.2 - vix) / vix,
		},
		Events: EventCalendarData{
			DaysToFOMC:     12,
			DaysToCPI:      8,
			DaysToNFP:      15,
			DaysToEarnings: 22,
			EventsNext5D:   0,
			EventsNext20D:  2,
		},
		Credit: CreditMacroData{
			HYOAS:          380.0,
			HYOAS20DChange: 5.0,
			IGSpread:       95.0,
			FedFundsRate:   4.50,
			US10YYield:     4.25,
			US2s10s:        0.15,
		},
		Liquidity: LiquidityData{
			SPXBidAsk:       0.04,
			SPXBidAsk20DMA:  0.04,
			BidAskWidening:  1.0,
			EminiDepth:      1800.0,
			OptionsVolumeOI: 0.45,
		},
		Correlation: CorrelationData{
			ImpliedCorr:     45.0,
			RealizedCorr20D: 40.0,
			CorrPctile1Y:    42.0,
			Dispersion:      5.0,
		},
		Timestamp: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
	}
}
