package dashboard

import (
	"bytes"
	"html/template"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"SilverReport/internal/calculator"
	"SilverReport/internal/model"
	"SilverReport/internal/strategy"
)

// View is everything the page template needs.
type View struct {
	Source      string
	HasData     bool
	Error       string
	Notice      string
	UpdatedAt   string
	UpdatedAgo  string
	CanTrigger  bool
	Cards       []Card
	Bias        *model.Bias
	Bullish     template.HTML
	Bearish     template.HTML
	News        []model.NewsItem
	ChartWidth  int
	ChartFormat string
}

// Card summarises one asset.
type Card struct {
	Asset     model.Asset
	Price     string
	Change    string
	Up        bool
	High      string
	Low       string
	RSI       string
	Bars      int
	HasSeries bool
}

// View builds the view model from the held report. A page without a
// report yields HasData false.
func (p *Page) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		Source:      p.src.Name(),
		CanTrigger:  p.src.Name() != "static",
		ChartWidth:  p.opts.Width,
		ChartFormat: "png",
	}
	if p.loadErr != nil {
		v.Error = "Could not load the latest report."
	}
	rep := p.report
	if rep == nil {
		return v
	}

	v.HasData = true
	if !rep.Timestamp.IsZero() {
		v.UpdatedAt = rep.Timestamp.UTC().Format("2006-01-02 15:04 UTC")
		v.UpdatedAgo = humanize.Time(rep.Timestamp.Time)
	}
	for _, asset := range model.Assets {
		ind := calculator.Compute(asset, p.bars[asset])
		v.Cards = append(v.Cards, newCard(ind))
		if asset == model.Silver && ind.Bars > 0 {
			b := strategy.Evaluate(ind)
			v.Bias = &b
		}
	}
	v.Bullish = renderMarkdown(rep.BullishReport)
	v.Bearish = renderMarkdown(rep.BearishReport)
	v.News = rep.NewsData
	return v
}

func newCard(ind model.Indicators) Card {
	c := Card{Asset: ind.Asset, Bars: ind.Bars, HasSeries: ind.Bars > 0}
	if !c.HasSeries {
		return c
	}
	c.Price = formatPrice(ind.CurrentPrice)
	c.High = formatPrice(ind.RangeHigh)
	c.Low = formatPrice(ind.RangeLow)
	c.Change = formatPercent(ind.ChangePct)
	c.Up = ind.ChangePct >= 0
	c.RSI = formatFixed(ind.RSI, 1)
	return c
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatFixed(v float64, places int32) string {
	if !finite(v) {
		return "-"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// formatPrice rounds to cents and groups thousands.
func formatPrice(v float64) string {
	if !finite(v) {
		return "-"
	}
	d := decimal.NewFromFloat(v).Round(2)
	if d.Abs().GreaterThanOrEqual(decimal.NewFromInt(1000)) {
		return humanize.CommafWithDigits(d.InexactFloat64(), 2)
	}
	return d.StringFixed(2)
}

func formatPercent(v float64) string {
	if !finite(v) {
		return "-"
	}
	s := decimal.NewFromFloat(v).StringFixed(2) + "%"
	if v > 0 {
		s = "+" + s
	}
	return s
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
	),
)

// renderMarkdown converts a narrative to HTML. Raw HTML in the input is
// not passed through.
func renderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	return template.HTML(buf.String())
}
