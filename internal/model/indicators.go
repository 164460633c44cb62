package model

// Indicators holds the statistics computed from one cleaned series.
type Indicators struct {
	Asset        Asset
	Bars         int
	CurrentPrice float64
	FirstPrice   float64
	ChangePct    float64
	SMA          float64 // over SMAPeriod bars, 0 when not enough data
	SMAPeriod    int
	RSI          float64
	RangeHigh    float64
	RangeLow     float64
	Position     float64 // 0.0 ~ 1.0 within [RangeLow, RangeHigh]
}

// FactorScore is a single scoring factor's result.
type FactorScore struct {
	Name       string  `json:"name"`
	RawScore   float64 `json:"raw_score"`
	Weight     float64 `json:"weight"`
	Weighted   float64 `json:"weighted"`
	Commentary string  `json:"commentary"`
}

// Bias is the technical tilt derived from Indicators.
type Bias struct {
	Asset      Asset         `json:"asset"`
	Factors    []FactorScore `json:"factors"`
	TotalScore float64       `json:"total_score"`
	Label      string        `json:"label"`
	WarningMsg string        `json:"warning,omitempty"`
}
