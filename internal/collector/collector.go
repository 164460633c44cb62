package collector

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"SilverReport/internal/logging"
	"SilverReport/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Count int
	Bars  map[string][]model.RawBar
	Errs  map[string]error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, ticker, _, _ string) ([]model.RawBar, error) {
	if err := m.Errs[ticker]; err != nil {
		return nil, err
	}
	if bars, ok := m.Bars[ticker]; ok {
		return bars, nil
	}
	count := m.Count
	if count == 0 {
		count = 24
	}
	return generateMockBars(m.Price, count), nil
}

func generateMockBars(basePrice float64, count int) []model.RawBar {
	bars := make([]model.RawBar, count)
	end := time.Now().UTC().Truncate(time.Hour)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.RawBar{
			Datetime: end.Add(-time.Duration(count-1-i) * time.Hour).Format(DatetimeLayout),
			Open:     p * 0.999,
			High:     p * 1.005,
			Low:      p * 0.995,
			Close:    p,
			Volume:   1000000.0,
		}
	}
	return bars
}

// Collector fetches every tracked asset into one MarketData.
type Collector struct {
	Fetcher  Fetcher
	Interval string
	Range    string
	log      *logrus.Entry
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, interval, rng string) *Collector {
	return &Collector{
		Fetcher:  fetcher,
		Interval: interval,
		Range:    rng,
		log:      logging.For("collector").WithField("fetcher", fetcher.Name()),
	}
}

// Collect fetches each asset. A failing asset gets an empty series and a
// warning; the others are still returned. Only a cancelled ctx is an error.
func (c *Collector) Collect(ctx context.Context) (model.MarketData, error) {
	data := make(model.MarketData, len(model.Assets))
	for _, asset := range model.Assets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ticker := model.Tickers[asset]
		bars, err := c.Fetcher.FetchBars(ctx, ticker, c.Interval, c.Range)
		if err != nil {
			c.log.WithError(err).WithField("asset", asset).Warn("fetch market data")
			data[asset] = []model.RawBar{}
			continue
		}
		if len(bars) == 0 {
			c.log.WithField("asset", asset).Warn("no market data")
			bars = []model.RawBar{}
		}
		data[asset] = bars
		c.log.WithFields(logrus.Fields{"asset": asset, "ticker": ticker, "bars": len(bars)}).Debug("collected")
	}
	return data, nil
}
