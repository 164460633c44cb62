package calculator

import (
	"errors"
	"math"

	"SilverReport/internal/model"
)

// CalculateRange scans the whole series and returns the highest high and lowest low.
func CalculateRange(bars []model.PriceBar) (high, low float64, err error) {
	return CalculateRecentRange(bars, len(bars))
}

// CalculateRecentRange scans the most recent n bars and returns the high and low.
func CalculateRecentRange(bars []model.PriceBar, n int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// CalculatePosition returns where the current price sits within [low, high] (0.0~1.0).
func CalculatePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
