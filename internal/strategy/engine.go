// Package strategy turns indicators into a weighted technical bias. A positive
// score means the series looks stretched to the downside, a negative one
// stretched to the upside.
package strategy

import "SilverReport/internal/model"

// Labels maps minimum total scores to a bias label, highest first.
var Labels = []struct {
	MinScore float64
	Label    string
}{
	{1.2, "Deeply oversold"},
	{0.5, "Oversold"},
	{-0.5, "Neutral"},
	{-1.2, "Overbought"},
}

// DefaultLabel is used for scores below every threshold.
const DefaultLabel = "Deeply overbought"

// NoDataLabel is used when the series is empty.
const NoDataLabel = "No data"

func mapLabel(totalScore float64) string {
	for _, l := range Labels {
		if totalScore >= l.MinScore {
			return l.Label
		}
	}
	return DefaultLabel
}

// Evaluate computes the technical bias of one series.
func Evaluate(ind model.Indicators) model.Bias {
	if ind.Bars == 0 {
		return model.Bias{Asset: ind.Asset, Label: NoDataLabel}
	}

	f1 := scoreSMADeviation(ind)
	f2 := scoreRSI(ind)
	f3 := scoreRangePosition(ind, (f1.RawScore+f2.RawScore)/2.0)

	total := f1.Weighted + f2.Weighted + f3.Weighted
	bias := model.Bias{
		Asset:      ind.Asset,
		Factors:    []model.FactorScore{f1, f2, f3},
		TotalScore: total,
		Label:      mapLabel(total),
	}

	switch {
	case ind.RSI > 85:
		bias.WarningMsg = "RSI above 85, momentum is stretched"
	case ind.RSI < 15:
		bias.WarningMsg = "RSI below 15, selling looks exhausted"
	}
	return bias
}
