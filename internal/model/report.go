package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Timestamp is a nullable point in time that accepts the loose ISO strings
// produced upstream (with or without offset) and Unix seconds.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if s, ok := v.(string); ok && s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := cast.ToTimeE(v)
	if err != nil {
		return fmt.Errorf("parse timestamp %s: %w", string(data), err)
	}
	t.Time = parsed
	return nil
}

// NewsItem is one article from the news collector.
type NewsItem struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	PublishedDate string  `json:"published_date"`
	Content       string  `json:"content,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

// Report is the payload rendered by the dashboard. It is immutable once
// fetched; holders replace it wholesale.
type Report struct {
	Timestamp     Timestamp  `json:"timestamp"`
	BullishReport string     `json:"bullish_report"`
	BearishReport string     `json:"bearish_report"`
	MarketData    MarketData `json:"market_data"`
	NewsData      []NewsItem `json:"news_data"`
}

// PlaceholderReport is served before the first generation run.
func PlaceholderReport() *Report {
	return &Report{
		BullishReport: "Not generated yet.",
		BearishReport: "Not generated yet.",
		MarketData:    MarketData{},
		NewsData:      []NewsItem{},
	}
}

// RunState is the state of the report generator.
type RunState string

const (
	RunIdle    RunState = "idle"
	RunRunning RunState = "running"
	RunFailed  RunState = "failed"
)

// GenerationStatus describes the latest generation run.
type GenerationStatus struct {
	State           RunState  `json:"state"`
	RunID           string    `json:"run_id,omitempty"`
	StartedAt       Timestamp `json:"started_at"`
	FinishedAt      Timestamp `json:"finished_at"`
	ReportTimestamp Timestamp `json:"report_timestamp"`
	Error           string    `json:"error,omitempty"`
}
