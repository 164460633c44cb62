package dashboard

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SilverReport/internal/chart"
	"SilverReport/internal/model"
	"SilverReport/internal/reportclient"
	"SilverReport/internal/sanitizer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	mu        sync.Mutex
	name      string
	report    *model.Report
	fetchErr  error
	status    model.GenerationStatus
	triggered int
	// onTrigger swaps in the report and status a finished run would leave.
	onTrigger func(*fakeSource)
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchLatest(context.Context) (*model.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.report, nil
}

func (f *fakeSource) TriggerRegeneration(context.Context) error {
	if f.name == "static" {
		return &reportclient.NotSupportedError{Op: "trigger regeneration", Message: reportclient.StaticTriggerMessage}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggered++
	if f.onTrigger != nil {
		f.onTrigger(f)
	}
	return nil
}

func (f *fakeSource) Status(context.Context) (*model.GenerationStatus, error) {
	if f.name == "static" {
		return nil, reportclient.ErrNotSupported
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.status
	return &st, nil
}

func rawSeries(n int, start float64) []model.RawBar {
	out := make([]model.RawBar, n)
	for i := range out {
		p := start + float64(i)*0.2
		out[i] = model.RawBar{
			Time:  int64(1714557600 + i*3600),
			Open:  p,
			High:  p + 0.3,
			Low:   p - 0.3,
			Close: p + 0.1,
		}
	}
	return out
}

func testReport(bullish string) *model.Report {
	return &model.Report{
		Timestamp:     model.NewTimestamp(time.Now().Add(-2 * time.Hour)),
		BullishReport: bullish,
		BearishReport: "약세 요인\n둘째 줄",
		MarketData: model.MarketData{
			model.Silver:  rawSeries(30, 28),
			model.Bitcoin: rawSeries(30, 67000),
		},
		NewsData: []model.NewsItem{{Title: "Silver rallies", URL: "https://example.com/a", PublishedDate: "2024-05-01"}},
	}
}

func newTestPage(t *testing.T, src *fakeSource) *Page {
	t.Helper()
	p, err := New(src, Options{Policy: sanitizer.KeepLast, Width: 600, PollInterval: time.Millisecond, WaitTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestPage_InitialNoData(t *testing.T) {
	p := newTestPage(t, &fakeSource{name: "static"})
	assert.Nil(t, p.Report())
	v := p.View()
	assert.False(t, v.HasData)
	assert.Empty(t, v.Cards)
}

func TestPage_LoadFailureDegradesToNoData(t *testing.T) {
	p := newTestPage(t, &fakeSource{name: "static", fetchErr: reportclient.ErrNetwork})
	err := p.Load(context.Background())
	assert.ErrorIs(t, err, reportclient.ErrNetwork)

	v := p.View()
	assert.False(t, v.HasData)
	assert.NotEmpty(t, v.Error)
}

func TestPage_LoadFailureKeepsPreviousReport(t *testing.T) {
	src := &fakeSource{name: "static", report: testReport("**강세**")}
	p := newTestPage(t, src)
	require.NoError(t, p.Load(context.Background()))
	first := p.Report()

	src.fetchErr = errors.New("offline")
	assert.Error(t, p.Load(context.Background()))
	assert.Same(t, first, p.Report())
	assert.True(t, p.View().HasData)
}

func TestPage_View(t *testing.T) {
	p := newTestPage(t, &fakeSource{name: "static", report: testReport("# 강세 <b>\n**금리**")})
	require.NoError(t, p.Load(context.Background()))

	v := p.View()
	require.True(t, v.HasData)
	assert.False(t, v.CanTrigger)
	assert.Equal(t, "2 hours ago", v.UpdatedAgo)
	require.Len(t, v.Cards, len(model.Assets))

	silver := v.Cards[0]
	assert.Equal(t, model.Silver, silver.Asset)
	assert.True(t, silver.HasSeries)
	assert.Equal(t, 30, silver.Bars)
	assert.True(t, silver.Up)
	assert.True(t, strings.HasPrefix(silver.Change, "+"))

	gold := v.Cards[1]
	assert.False(t, gold.HasSeries)

	require.NotNil(t, v.Bias)
	assert.Equal(t, model.Silver, v.Bias.Asset)

	assert.Contains(t, string(v.Bullish), "<h1>")
	assert.Contains(t, string(v.Bullish), "<strong>금리</strong>")
	assert.NotContains(t, string(v.Bullish), "<b>")
	assert.Contains(t, string(v.Bearish), "<br />")
	assert.Len(t, v.News, 1)
}

func TestPage_RenderChart(t *testing.T) {
	p := newTestPage(t, &fakeSource{name: "static", report: testReport("")})

	var buf bytes.Buffer
	assert.ErrorIs(t, p.RenderChart(&buf, model.Silver, 0, chart.PNG), chart.ErrNoData)

	require.NoError(t, p.Load(context.Background()))
	require.NoError(t, p.RenderChart(&buf, model.Silver, 400, chart.PNG))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	buf.Reset()
	assert.ErrorIs(t, p.RenderChart(&buf, model.Gold, 0, chart.PNG), chart.ErrNoData)
}

func TestPage_RegenerateStatic(t *testing.T) {
	p := newTestPage(t, &fakeSource{name: "static"})
	notice, err := p.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reportclient.StaticTriggerMessage, notice)
	assert.Equal(t, reportclient.StaticTriggerMessage, p.TakeNotice())
	assert.Empty(t, p.TakeNotice())
}

func TestPage_RegenerateAPI(t *testing.T) {
	src := &fakeSource{
		name:   "api",
		report: testReport("old"),
		status: model.GenerationStatus{State: model.RunIdle, RunID: "run-1"},
		onTrigger: func(f *fakeSource) {
			f.report = testReport("new")
			f.status = model.GenerationStatus{State: model.RunIdle, RunID: "run-2"}
		},
	}
	p := newTestPage(t, src)
	require.NoError(t, p.Load(context.Background()))

	notice, err := p.Regenerate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Report regenerated.", notice)
	assert.Equal(t, 1, src.triggered)
	assert.Equal(t, "new", p.Report().BullishReport)
}

func TestPage_RegenerateFailedRun(t *testing.T) {
	src := &fakeSource{
		name:   "api",
		report: testReport("old"),
		onTrigger: func(f *fakeSource) {
			f.status = model.GenerationStatus{State: model.RunFailed, RunID: "run-9", Error: "collect failed"}
		},
	}
	p := newTestPage(t, src)
	require.NoError(t, p.Load(context.Background()))

	_, err := p.Regenerate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect failed")
	assert.Equal(t, "old", p.Report().BullishReport)
}

func TestPage_Viewport(t *testing.T) {
	p := newTestPage(t, &fakeSource{name: "static"})
	assert.Error(t, p.Viewport(0))

	require.NoError(t, p.Viewport(480))
	w := p.widgets[model.Silver]
	assert.Eventually(t, func() bool { return w.Width() == 480 }, time.Second, time.Millisecond)
}

func TestPage_Close(t *testing.T) {
	src := &fakeSource{name: "static", report: testReport("")}
	p, err := New(src, Options{})
	require.NoError(t, err)
	require.NoError(t, p.Load(context.Background()))
	w := p.widgets[model.Silver]

	p.Close()
	p.Close()
	assert.True(t, p.Closed())
	assert.False(t, w.Mounted())
	assert.Nil(t, p.Report())
	assert.ErrorIs(t, p.Load(context.Background()), ErrClosed)
	assert.ErrorIs(t, p.Viewport(100), ErrClosed)
}

func TestPage_ViewExtremePrices(t *testing.T) {
	rep := testReport("")
	rep.MarketData[model.Gold] = []model.RawBar{
		{Time: int64(1714557600), Open: 1e-300, High: 1e-300, Low: 1e-300, Close: 1e-300},
		{Time: int64(1714561200), Open: 1e300, High: 1e300, Low: 1e300, Close: 1e300},
	}
	p := newTestPage(t, &fakeSource{name: "static", report: rep})
	require.NoError(t, p.Load(context.Background()))

	var v View
	require.NotPanics(t, func() { v = p.View() })
	gold := v.Cards[1]
	assert.Equal(t, model.Gold, gold.Asset)
	assert.Equal(t, "-", gold.Change)

	h := NewHandler(p)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "30.60", formatPrice(30.6))
	assert.Equal(t, "67,890.12", formatPrice(67890.123))
	assert.Equal(t, "+1.23%", formatPercent(1.234))
	assert.Equal(t, "-0.50%", formatPercent(-0.5))
	assert.Equal(t, "0.00%", formatPercent(0))
	assert.Equal(t, "-", formatPercent(math.Inf(1)))
	assert.Equal(t, "-", formatFixed(math.NaN(), 1))
	assert.Equal(t, "-", formatPrice(math.Inf(-1)))
	assert.Empty(t, string(renderMarkdown("  ")))
}

func TestHandler(t *testing.T) {
	src := &fakeSource{name: "static", report: testReport("**강세**")}
	p := newTestPage(t, src)
	h := NewHandler(p)

	do := func(method, target, body, contentType string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<strong>강세</strong>")
	assert.Contains(t, w.Body.String(), "/charts/Silver?width=600")
	assert.Contains(t, w.Body.String(), "Silver rallies")

	w = do(http.MethodGet, "/charts/Silver?format=svg", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))

	w = do(http.MethodGet, "/charts/Gold", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(http.MethodGet, "/charts/Copper", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(http.MethodGet, "/charts/Silver?width=-3", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(http.MethodPost, "/viewport", `{"width": 512}`, "application/json")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(http.MethodPost, "/viewport", `{}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(http.MethodPost, "/refresh", "", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = do(http.MethodGet, "/", "", "")
	assert.Contains(t, w.Body.String(), "static site")
}

func TestHandler_NoData(t *testing.T) {
	p := newTestPage(t, &fakeSource{name: "api", fetchErr: reportclient.ErrNetwork})
	h := NewHandler(p)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No data.")
	assert.Contains(t, w.Body.String(), "Could not load the latest report.")
}
