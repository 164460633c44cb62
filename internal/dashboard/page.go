// Package dashboard owns the report shown to the user and the chart widgets
// drawn from it, and serves them as a small HTML page.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"SilverReport/internal/chart"
	"SilverReport/internal/logging"
	"SilverReport/internal/model"
	"SilverReport/internal/reportclient"
	"SilverReport/internal/sanitizer"
)

// ErrClosed is returned by operations on a closed page.
var ErrClosed = errors.New("dashboard page is closed")

// Options configures a Page.
type Options struct {
	Policy       sanitizer.DuplicatePolicy
	Width        int
	Height       int
	Colors       chart.Colors
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// Page holds at most one Report, replaced wholesale on each successful
// fetch, and one chart widget per asset. It is safe for concurrent use.
type Page struct {
	mu      sync.Mutex
	src     reportclient.Source
	opts    Options
	report  *model.Report
	bars    map[model.Asset][]model.PriceBar
	loadErr error
	notice  string
	closed  bool

	widgets map[model.Asset]*chart.Widget
	sizes   map[model.Asset]chan int

	log *logrus.Entry
}

// New mounts a widget per asset. Silver is drawn as candles, the rest as
// close-price lines.
func New(src reportclient.Source, opts Options) (*Page, error) {
	if opts.Width < 1 {
		opts.Width = 800
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 3 * time.Minute
	}

	p := &Page{
		src:     src,
		opts:    opts,
		bars:    make(map[model.Asset][]model.PriceBar),
		widgets: make(map[model.Asset]*chart.Widget, len(model.Assets)),
		sizes:   make(map[model.Asset]chan int, len(model.Assets)),
		log:     logging.For("dashboard").WithField("source", src.Name()),
	}
	for _, asset := range model.Assets {
		kind := chart.Line
		if asset == model.Silver {
			kind = chart.Candlestick
		}
		w, err := chart.Mount(opts.Width, chart.Options{
			Title:  string(asset),
			Kind:   kind,
			Height: opts.Height,
			Colors: opts.Colors,
		})
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("mount %s chart: %w", asset, err)
		}
		sizes := make(chan int, 1)
		w.Observe(sizes)
		p.widgets[asset] = w
		p.sizes[asset] = sizes
	}
	return p, nil
}

// Load fetches the latest report. On failure the previous report stays in
// place (or none, which the view shows as no data) and the error is returned
// for the caller to log.
func (p *Page) Load(ctx context.Context) error {
	rep, err := p.src.FetchLatest(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if err != nil {
		p.loadErr = err
		p.log.WithError(err).Warn("fetch report")
		return fmt.Errorf("load report: %w", err)
	}

	p.report = rep
	p.loadErr = nil
	for asset, w := range p.widgets {
		bars := sanitizer.Sanitize(rep.MarketData[asset], p.opts.Policy)
		p.bars[asset] = bars
		w.SetData(bars)
	}
	p.log.WithField("timestamp", rep.Timestamp.Time).Debug("report loaded")
	return nil
}

// Regenerate asks the source for a new report, waits for it and reloads.
// When the source cannot regenerate, the user-facing reason is returned as
// the notice and err is nil.
func (p *Page) Regenerate(ctx context.Context) (notice string, err error) {
	if p.Closed() {
		return "", ErrClosed
	}

	var prevRunID string
	if st, err := p.src.Status(ctx); err == nil {
		prevRunID = st.RunID
	}

	if err := p.src.TriggerRegeneration(ctx); err != nil {
		if msg := reportclient.UserMessage(err); msg != "" {
			p.setNotice(msg)
			return msg, nil
		}
		return "", fmt.Errorf("trigger regeneration: %w", err)
	}
	p.log.Info("regeneration requested")

	waitCtx, cancel := context.WithTimeout(ctx, p.opts.WaitTimeout)
	defer cancel()
	if _, err := reportclient.WaitForReport(waitCtx, p.src, prevRunID, p.opts.PollInterval); err != nil {
		return "", err
	}
	if err := p.Load(ctx); err != nil {
		return "", err
	}
	notice = "Report regenerated."
	p.setNotice(notice)
	return notice, nil
}

func (p *Page) setNotice(msg string) {
	p.mu.Lock()
	p.notice = msg
	p.mu.Unlock()
}

// TakeNotice returns and clears the pending notice.
func (p *Page) TakeNotice() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.notice
	p.notice = ""
	return n
}

// Report returns the held report, nil before the first successful load.
func (p *Page) Report() *model.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

// Viewport forwards a new region width to every widget's resize observer.
// Only the newest pending width is kept.
func (p *Page) Viewport(width int) error {
	if width < 1 {
		return fmt.Errorf("viewport width must be positive, got %d", width)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	for _, ch := range p.sizes {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- width:
		default:
		}
	}
	return nil
}

// RenderChart draws the asset's chart. A positive width resizes the widget
// first.
func (p *Page) RenderChart(out io.Writer, asset model.Asset, width int, format chart.Format) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	w, ok := p.widgets[asset]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown asset %q", asset)
	}
	if width > 0 {
		w.Resize(width)
	}
	return w.Render(out, format)
}

// Closed reports whether Close has been called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close unmounts every widget and drops the held report. It is safe to
// call more than once.
func (p *Page) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	widgets := p.widgets
	p.widgets = map[model.Asset]*chart.Widget{}
	p.sizes = map[model.Asset]chan int{}
	p.report = nil
	p.bars = map[model.Asset][]model.PriceBar{}
	p.mu.Unlock()

	for _, w := range widgets {
		w.Unmount()
	}
}
