package chart

import (
	"errors"
	"fmt"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"SilverReport/internal/model"
)

// candleSeries draws OHLC bars. It implements gochart.Series and
// gochart.BoundedValuesProvider (x, high, low) so the chart can size its axes.
type candleSeries struct {
	name     string
	bars     []model.PriceBar
	up, down drawing.Color
}

var _ gochart.Series = candleSeries{}
var _ gochart.BoundedValuesProvider = candleSeries{}

func (cs candleSeries) GetName() string             { return cs.name }
func (cs candleSeries) GetYAxis() gochart.YAxisType { return gochart.YAxisPrimary }
func (cs candleSeries) GetStyle() gochart.Style     { return gochart.Style{} }
func (cs candleSeries) Len() int                    { return len(cs.bars) }

func (cs candleSeries) GetBoundedValues(i int) (x, y1, y2 float64) {
	b := cs.bars[i]
	return float64(b.Time), b.High, b.Low
}

func (cs candleSeries) Validate() error {
	return validateBars(cs.bars)
}

func (cs candleSeries) Render(r gochart.Renderer, canvasBox gochart.Box, xrange, yrange gochart.Range, _ gochart.Style) {
	if len(cs.bars) == 0 {
		return
	}
	half := int(float64(canvasBox.Width()) / float64(len(cs.bars)) * 0.35)
	if half < 1 {
		half = 1
	}

	for _, b := range cs.bars {
		x := canvasBox.Left + xrange.Translate(float64(b.Time))
		yHigh := canvasBox.Bottom - yrange.Translate(b.High)
		yLow := canvasBox.Bottom - yrange.Translate(b.Low)
		yOpen := canvasBox.Bottom - yrange.Translate(b.Open)
		yClose := canvasBox.Bottom - yrange.Translate(b.Close)

		col := cs.up
		if b.Close < b.Open {
			col = cs.down
		}

		r.SetStrokeColor(col)
		r.SetStrokeWidth(1)
		r.MoveTo(x, yHigh)
		r.LineTo(x, yLow)
		r.Stroke()

		top, bottom := yOpen, yClose
		if top > bottom {
			top, bottom = bottom, top
		}
		if bottom == top {
			bottom++
		}
		r.SetFillColor(col)
		r.MoveTo(x-half, top)
		r.LineTo(x+half, top)
		r.LineTo(x+half, bottom)
		r.LineTo(x-half, bottom)
		r.Close()
		r.Fill()
	}
}

// lineSeries builds the close-price line with the area fill underneath.
// go-chart fills with a single color, so the area takes the midpoint of the
// top and bottom colors.
func lineSeries(name string, bars []model.PriceBar, p palette) gochart.ContinuousSeries {
	xs := make([]float64, len(bars))
	ys := make([]float64, len(bars))
	for i, b := range bars {
		xs[i] = float64(b.Time)
		ys[i] = b.Close
	}
	return gochart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style: gochart.Style{
			StrokeColor: p.line,
			StrokeWidth: 3,
			FillColor:   blend(p.areaTop, p.areaBottom),
		},
	}
}

func blend(a, b drawing.Color) drawing.Color {
	mid := func(x, y uint8) uint8 { return uint8((uint16(x) + uint16(y) + 1) / 2) }
	return drawing.Color{R: mid(a.R, b.R), G: mid(a.G, b.G), B: mid(a.B, b.B), A: mid(a.A, b.A)}
}

var errEmptySeries = errors.New("series is empty")

func validateBars(bars []model.PriceBar) error {
	if len(bars) == 0 {
		return errEmptySeries
	}
	for i, b := range bars {
		for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bar %d: non-finite price", i)
			}
		}
		if i > 0 && bars[i-1].Time >= b.Time {
			return fmt.Errorf("bar %d: time %d not after %d", i, b.Time, bars[i-1].Time)
		}
	}
	return nil
}

// bounds returns padded axis ranges for bars. Single points and flat series
// get a non-zero span so the chart never sees a zero delta.
func bounds(bars []model.PriceBar) (xr, yr *gochart.ContinuousRange) {
	minX, maxX := float64(bars[0].Time), float64(bars[len(bars)-1].Time)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		minY = math.Min(minY, math.Min(b.Low, math.Min(b.Open, b.Close)))
		maxY = math.Max(maxY, math.Max(b.High, math.Max(b.Open, b.Close)))
	}

	padX := (maxX - minX) / float64(2*len(bars))
	if padX == 0 {
		padX = 1800
	}
	padY := (maxY - minY) * 0.05
	if padY == 0 {
		padY = math.Max(math.Abs(maxY)*0.01, 1)
	}
	return &gochart.ContinuousRange{Min: minX - padX, Max: maxX + padX},
		&gochart.ContinuousRange{Min: minY - padY, Max: maxY + padY}
}
