package calculator

import "SilverReport/internal/model"

// Compute derives the summary statistics for one cleaned series.
// An empty series yields Indicators with only Asset set.
func Compute(asset model.Asset, bars []model.PriceBar) model.Indicators {
	ind := model.Indicators{Asset: asset, Bars: len(bars), SMAPeriod: DefaultSMAPeriod}
	if len(bars) == 0 {
		return ind
	}

	ind.CurrentPrice = bars[len(bars)-1].Close
	ind.FirstPrice = bars[0].Close
	if ind.FirstPrice != 0 {
		ind.ChangePct = (ind.CurrentPrice - ind.FirstPrice) / ind.FirstPrice * 100
	}

	if sma, err := CalculateBarSMA(bars, DefaultSMAPeriod); err == nil {
		ind.SMA = sma
	}
	ind.RSI, _ = CalculateRSI(bars, DefaultRSIPeriod)

	ind.RangeHigh, ind.RangeLow, _ = CalculateRange(bars)
	ind.Position, _ = CalculatePosition(ind.CurrentPrice, ind.RangeHigh, ind.RangeLow)
	return ind
}
