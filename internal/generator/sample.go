package generator

import (
	"time"

	"SilverReport/internal/model"
)

// sampleMarketData stands in when the Silver series could not be collected,
// so an exported document always has something to chart.
func sampleMarketData(now time.Time) model.MarketData {
	day := now.Format("2006-01-02")
	at := func(hour string) string { return day + "T" + hour + ":00:00" }
	return model.MarketData{
		model.Silver: {
			{Datetime: at("10"), Open: 30.5, High: 30.8, Low: 30.3, Close: 30.6, Volume: 1000.0},
			{Datetime: at("11"), Open: 30.6, High: 30.9, Low: 30.5, Close: 30.7, Volume: 1100.0},
			{Datetime: at("12"), Open: 30.7, High: 31.0, Low: 30.6, Close: 30.9, Volume: 1200.0},
		},
		model.Gold: {
			{Datetime: at("10"), Open: 2050.0, High: 2055.0, Low: 2048.0, Close: 2052.0, Volume: 500.0},
		},
		model.Bitcoin: {
			{Datetime: at("10"), Open: 45000.0, High: 45500.0, Low: 44800.0, Close: 45200.0, Volume: 100.0},
		},
		model.USDIndex: {},
	}
}

func sampleNews(now time.Time) []model.NewsItem {
	return []model.NewsItem{{
		Title:         "News collection failed: sample item",
		URL:           "#",
		PublishedDate: now.Format(time.RFC3339),
	}}
}
