package strategy

import (
	"fmt"

	"SilverReport/internal/model"
)

// scoreSMADeviation scores based on how far the current price deviates from the SMA.
// Weight: 0.40. Thresholds suit intraday bars over a week.
func scoreSMADeviation(ind model.Indicators) model.FactorScore {
	const weight = 0.40
	if ind.SMA == 0 {
		return model.FactorScore{Name: "SMA deviation", Weight: weight, Commentary: fmt.Sprintf("SMA%d unavailable", ind.SMAPeriod)}
	}
	deviation := (ind.CurrentPrice - ind.SMA) / ind.SMA * 100

	var score float64
	switch {
	case deviation <= -5:
		score = 2.0
	case deviation <= -3:
		score = 1.5
	case deviation <= -2:
		score = 1.0
	case deviation <= -1:
		score = 0.5
	case deviation < 1:
		score = 0
	case deviation < 2:
		score = -0.5
	case deviation < 3:
		score = -1.0
	case deviation < 5:
		score = -1.5
	default:
		score = -2.0
	}

	return model.FactorScore{
		Name:       "SMA deviation",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("%+.1f%% vs SMA%d", deviation, ind.SMAPeriod),
	}
}

// scoreRSI scores the RSI(14) of the series.
// Weight: 0.35
func scoreRSI(ind model.Indicators) model.FactorScore {
	const weight = 0.35
	rsi := ind.RSI
	var score float64
	switch {
	case rsi <= 25:
		score = 2.0
	case rsi <= 30:
		score = 1.5
	case rsi <= 40:
		score = 1.0
	case rsi <= 45:
		score = 0.5
	case rsi <= 55:
		score = 0
	case rsi <= 60:
		score = -0.5
	case rsi <= 70:
		score = -1.0
	case rsi <= 80:
		score = -1.5
	default:
		score = -2.0
	}

	return model.FactorScore{
		Name:       "RSI",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("RSI=%.0f", rsi),
	}
}

// scoreRangePosition scores where the price sits in the period range.
// Weight: 0.25
// Above 95% the score only reaches -2 when the other factors average below -1.
func scoreRangePosition(ind model.Indicators, otherFactorsAvg float64) model.FactorScore {
	const weight = 0.25
	pos := ind.Position * 100

	var score float64
	switch {
	case pos <= 10:
		score = 2.0
	case pos <= 20:
		score = 1.5
	case pos <= 30:
		score = 1.0
	case pos <= 40:
		score = 0.5
	case pos <= 60:
		score = 0
	case pos <= 70:
		score = -0.5
	case pos <= 80:
		score = -1.0
	case pos <= 95:
		score = -1.5
	default:
		if otherFactorsAvg < -1 {
			score = -2.0
		} else {
			score = -1.0
		}
	}

	return model.FactorScore{
		Name:       "Range position",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("position=%.0f%%", pos),
	}
}
