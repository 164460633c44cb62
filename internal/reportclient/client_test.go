package reportclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SilverReport/internal/config"
	"SilverReport/internal/model"
)

const sampleReport = `{
  "timestamp": "2024-05-01T12:30:00.123456",
  "bullish_report": "# up",
  "bearish_report": "# down",
  "market_data": {
    "Silver": [{"Datetime": "2024-05-01 10:00:00-04:00", "Open": 26.1, "High": 26.4, "Low": 26.0, "Close": 26.3, "Volume": 1000}],
    "Gold": [],
    "Bitcoin": [],
    "USD_Index": []
  },
  "news_data": [{"title": "Silver rallies", "url": "https://example.com/a", "published_date": "2024-05-01"}]
}`

func TestStaticSource_FetchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleReport), 0644))

	src := &StaticSource{Path: path}
	r, err := src.FetchLatest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2024, r.Timestamp.Year())
	assert.Equal(t, "# up", r.BullishReport)
	require.Len(t, r.MarketData[model.Silver], 1)
	assert.Equal(t, json.Number("26.3"), r.MarketData[model.Silver][0].Close)
	require.Len(t, r.NewsData, 1)
	assert.Equal(t, "Silver rallies", r.NewsData[0].Title)
}

func TestStaticSource_FetchFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/silver_report/data.json", r.URL.Path)
		_, _ = w.Write([]byte(sampleReport))
	}))
	defer srv.Close()

	src := &StaticSource{BaseURL: srv.URL + "/silver_report/", Client: srv.Client()}
	r, err := src.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "# down", r.BearishReport)
}

func TestStaticSource_MissingFileIsNetworkError(t *testing.T) {
	src := &StaticSource{Path: filepath.Join(t.TempDir(), "nope.json")}
	_, err := src.FetchLatest(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestStaticSource_TriggerFailsFast(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	src := &StaticSource{BaseURL: srv.URL, Client: srv.Client()}
	err := src.TriggerRegeneration(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Equal(t, StaticTriggerMessage, UserMessage(err))
	assert.Zero(t, hits.Load())

	_, err = src.Status(context.Background())
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestDecodeReport_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"array", "[]"},
		{"null", "null"},
		{"truncated", `{"timestamp": "2024`},
		{"wrong type", `{"news_data": "not a list"}`},
		{"bad timestamp", `{"timestamp": "yesterday-ish"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeReport([]byte(tt.body))
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestDecodeReport_NullTimestampAndMissingFields(t *testing.T) {
	r, err := decodeReport([]byte(`{"timestamp": null}`))
	require.NoError(t, err)
	assert.True(t, r.Timestamp.IsZero())
	assert.Empty(t, r.BullishReport)
	assert.NotNil(t, r.MarketData)
}

func TestAPISource_Endpoints(t *testing.T) {
	var triggered atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/report/latest", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleReport))
	})
	mux.HandleFunc("/trigger-report", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		triggered.Add(1)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"message":"Report generation triggered in background."}`))
	})
	mux.HandleFunc("/report/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"running","run_id":"abc"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := &APISource{BaseURL: srv.URL, Client: srv.Client()}

	r, err := src.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "# up", r.BullishReport)

	require.NoError(t, src.TriggerRegeneration(context.Background()))
	assert.EqualValues(t, 1, triggered.Load())

	st, err := src.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RunRunning, st.State)
	assert.Equal(t, "abc", st.RunID)
}

func TestAPISource_ServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := &APISource{BaseURL: srv.URL, Client: srv.Client()}
	_, err := src.FetchLatest(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, src.TriggerRegeneration(context.Background()), ErrNetwork)
}

func TestAPISource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := &APISource{BaseURL: url, Client: &http.Client{Timeout: time.Second}}
	_, err := src.FetchLatest(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestAPISource_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	src := &APISource{BaseURL: srv.URL, Client: srv.Client()}
	_, err := src.FetchLatest(context.Background())
	assert.ErrorIs(t, err, ErrDecode)
	assert.False(t, errors.Is(err, ErrNetwork))
}

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.Source.Mode = config.ModeStatic
	cfg.Source.Path = "public/data.json"
	src, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "static", src.Name())

	cfg.Source.Mode = config.ModeAPI
	cfg.Source.URL = "http://localhost:8000"
	src, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "api", src.Name())

	cfg.Source.Mode = "carrier-pigeon"
	_, err = New(cfg)
	assert.Error(t, err)
}
