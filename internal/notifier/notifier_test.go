package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SilverReport/internal/model"
	"SilverReport/internal/recorder"
)

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload["chat_id"])
		assert.Equal(t, "HTML", payload["parse_mode"])
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := &TelegramNotifier{BotToken: "token", ChatID: "42", Client: srv.Client(), BaseURL: srv.URL, RetryBase: time.Millisecond}
	require.NoError(t, n.SendWithRetry(context.Background(), "hi", 3))
	assert.EqualValues(t, 3, calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := &TelegramNotifier{BotToken: "t", ChatID: "1", Client: srv.Client(), BaseURL: srv.URL, RetryBase: time.Millisecond}
	err := n.SendWithRetry(context.Background(), "hi", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	assert.EqualValues(t, 3, calls.Load())
}

func TestStartPolling(t *testing.T) {
	var sent atomic.Value
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/bott/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			assert.Equal(t, "0", r.URL.Query().Get("offset"))
			_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /status "}}]}`))
			return
		}
		assert.Equal(t, "8", r.URL.Query().Get("offset"))
		<-r.Context().Done()
	})
	mux.HandleFunc("/bott/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		sent.Store(payload["text"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	n := &TelegramNotifier{BotToken: "t", ChatID: "1", Client: srv.Client(), BaseURL: srv.URL}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(cmd string) string { return "got " + cmd })
		close(done)
	}()

	assert.Eventually(t, func() bool { return sent.Load() == "got /status" }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("polling did not stop")
	}
}

func TestFormatRunSummary(t *testing.T) {
	msg := FormatRunSummary(RunSummary{
		RunID: "0123456789abcdef",
		Report: &model.Report{
			Timestamp:     model.NewTimestamp(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
			BullishReport: "# 🚀 Bull <case>\n## 1",
			BearishReport: "intro\n# Bear case",
			NewsData:      []model.NewsItem{{Title: "a"}, {Title: "b"}},
		},
		Indicators: []model.Indicators{
			{Asset: model.Silver, Bars: 10, CurrentPrice: 30.9, ChangePct: 1.25, RSI: 61},
			{Asset: model.Bitcoin, Bars: 10, CurrentPrice: 65432.1},
			{Asset: model.USDIndex},
		},
		Biases: []model.Bias{
			{Asset: model.Silver, Label: "Neutral", TotalScore: 0.1, Factors: []model.FactorScore{{}}, WarningMsg: "RSI above 85"},
			{Asset: model.USDIndex, Label: "No data"},
		},
		Took: 3 * time.Second,
	})
	assert.Contains(t, msg, "2024-05-01 12:00")
	assert.Contains(t, msg, "Silver: 30.9 (+1.25%) RSI 61")
	assert.Contains(t, msg, "Bitcoin: 65,432.1")
	assert.Contains(t, msg, "USD_Index: no data")
	assert.Contains(t, msg, "Silver: Neutral (+0.100)")
	assert.NotContains(t, msg, "No data")
	assert.Contains(t, msg, "🚀 Bull &lt;case&gt;")
	assert.Contains(t, msg, "Bear case")
	assert.Contains(t, msg, "News items: 2")
	assert.Contains(t, msg, "run 01234567 in 3s")
}

func TestFormatFailureAndStatus(t *testing.T) {
	assert.Contains(t, FormatFailure("abc", errors.New("x < y")), "x &lt; y")

	msg := FormatStatus(model.GenerationStatus{State: model.RunFailed, RunID: "abcdef0123", Error: "boom"})
	assert.Contains(t, msg, "State: failed")
	assert.Contains(t, msg, "Run: abcdef01")
	assert.Contains(t, msg, "not generated yet")
	assert.Contains(t, msg, "Error: boom")
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "No reports recorded yet.", FormatHistory(nil))
	msg := FormatHistory([]recorder.ReportSummary{{
		RunID: "a", Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local), SilverClose: 30.9, BiasLabel: "Neutral", BiasScore: 0.1,
	}})
	assert.Contains(t, msg, "05-01 12:00  Silver 30.90  Neutral (+0.10)")
}
