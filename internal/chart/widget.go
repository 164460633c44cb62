// Package chart renders cleaned price series with go-chart. A Widget is
// mounted once, receives full dataset replacements, follows its region's
// width and is released with Unmount.
package chart

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	gochart "github.com/wcharczuk/go-chart/v2"

	"SilverReport/internal/logging"
	"SilverReport/internal/model"
)

// Kind selects how the series is drawn.
type Kind int

const (
	Candlestick Kind = iota
	Line
)

// Format selects the output encoding of Render.
type Format int

const (
	PNG Format = iota
	SVG
)

// ParseFormat maps "png" / "svg" to a Format. Anything else is PNG.
func ParseFormat(s string) Format {
	if s == "svg" {
		return SVG
	}
	return PNG
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

const defaultHeight = 300

var (
	// ErrNoData is returned by Render when no dataset has been bound.
	ErrNoData = errors.New("chart has no data")
	// ErrUnmounted is returned when the widget was already released.
	ErrUnmounted = errors.New("chart is unmounted")
)

// RenderError reports a dataset or drawing the chart library rejected.
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("chart %s: %v", e.Op, e.Err) }
func (e *RenderError) Unwrap() error { return e.Err }

// Options configures a widget at mount time.
type Options struct {
	Title  string
	Kind   Kind
	Height int
	Colors Colors
}

// Widget is a mounted chart instance. It is safe for concurrent use.
type Widget struct {
	mu      sync.Mutex
	opts    Options
	palette palette
	width   int
	bars    []model.PriceBar
	series  gochart.Series
	mounted bool

	observerStop chan struct{}
	observerDone chan struct{}

	log *logrus.Entry
}

// Mount creates a widget bound to a region of the given width.
func Mount(width int, opts Options) (w *Widget, err error) {
	w = &Widget{
		opts:    opts,
		width:   width,
		mounted: true,
		log:     logging.For("chart").WithField("title", opts.Title),
	}
	defer func() {
		if err != nil {
			w.Unmount()
			w = nil
		}
	}()

	if width < 1 {
		return w, fmt.Errorf("mount chart: width must be positive, got %d", width)
	}
	if w.opts.Height < 1 {
		w.opts.Height = defaultHeight
	}
	p, err := opts.Colors.resolve()
	if err != nil {
		return w, fmt.Errorf("mount chart: %w", err)
	}
	w.palette = p
	return w, nil
}

// SetData replaces the bound dataset. An empty dataset leaves the current
// one in place. A dataset the chart rejects is logged and dropped; the
// previous one stays bound.
func (w *Widget) SetData(bars []model.PriceBar) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.mounted {
		w.log.Debug("set data on unmounted chart ignored")
		return
	}
	if len(bars) == 0 {
		w.log.Debug("empty dataset, keeping previous state")
		return
	}
	s, err := w.build(bars, w.palette)
	if err != nil {
		w.log.WithError(err).Error("set chart data")
		return
	}
	w.bars = append([]model.PriceBar(nil), bars...)
	w.series = s
}

// SetColors swaps the palette and rebuilds the bound dataset with it.
func (w *Widget) SetColors(c Colors) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.mounted {
		return
	}
	p, err := c.resolve()
	if err != nil {
		w.log.WithError(err).Error("set chart colors")
		return
	}
	w.palette = p
	w.opts.Colors = c
	if len(w.bars) == 0 {
		return
	}
	s, err := w.build(w.bars, p)
	if err != nil {
		w.log.WithError(err).Error("rebuild chart data")
		return
	}
	w.series = s
}

func (w *Widget) build(bars []model.PriceBar, p palette) (s gochart.Series, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Op: "set data", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	switch w.opts.Kind {
	case Line:
		s = lineSeries(w.opts.Title, bars, p)
	default:
		s = candleSeries{name: w.opts.Title, bars: bars, up: p.up, down: p.down}
	}
	if err := validateBars(bars); err != nil {
		return nil, &RenderError{Op: "set data", Err: err}
	}
	if err := s.Validate(); err != nil {
		return nil, &RenderError{Op: "set data", Err: err}
	}
	return s, nil
}

// Resize updates only the width; the dataset is untouched.
func (w *Widget) Resize(width int) {
	if width < 1 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mounted {
		w.width = width
	}
}

// Width returns the current width.
func (w *Widget) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

// Bars returns a copy of the bound dataset.
func (w *Widget) Bars() []model.PriceBar {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.PriceBar(nil), w.bars...)
}

// Observe follows region width changes from sizes until the channel closes
// or the widget is unmounted. A previous observer is replaced.
func (w *Widget) Observe(sizes <-chan int) {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	stop, done := w.observerStop, w.observerDone
	w.observerStop = make(chan struct{})
	w.observerDone = make(chan struct{})
	myStop, myDone := w.observerStop, w.observerDone
	w.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	go func() {
		defer close(myDone)
		for {
			select {
			case <-myStop:
				return
			case width, ok := <-sizes:
				if !ok {
					return
				}
				w.Resize(width)
			}
		}
	}()
}

// Render draws the bound dataset. It returns ErrNoData when nothing is bound.
func (w *Widget) Render(out io.Writer, format Format) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.mounted {
		return ErrUnmounted
	}
	if w.series == nil {
		return ErrNoData
	}

	xr, yr := bounds(w.bars)
	p := w.palette
	axisStyle := gochart.Style{FontColor: p.text, StrokeColor: p.text}
	gridStyle := gochart.Style{StrokeColor: p.grid, StrokeWidth: 1}
	span := time.Duration(w.bars[len(w.bars)-1].Time-w.bars[0].Time) * time.Second

	graph := gochart.Chart{
		Title:      w.opts.Title,
		TitleStyle: gochart.Style{FontColor: p.text},
		Width:      w.width,
		Height:     w.opts.Height,
		Background: gochart.Style{FillColor: p.background, Padding: gochart.Box{Top: 20, Left: 10, Right: 10, Bottom: 10}},
		Canvas:     gochart.Style{FillColor: p.background},
		XAxis: gochart.XAxis{
			Style:          axisStyle,
			Range:          xr,
			ValueFormatter: unixFormatter(timeLayout(span)),
			GridMajorStyle: gridStyle,
		},
		YAxis: gochart.YAxis{
			Style:          axisStyle,
			Range:          yr,
			GridMajorStyle: gridStyle,
		},
		Series: []gochart.Series{w.series},
	}

	provider := gochart.PNG
	if format == SVG {
		provider = gochart.SVG
	}
	if err := graph.Render(provider, out); err != nil {
		return &RenderError{Op: "render", Err: err}
	}
	return nil
}

// Unmount stops the resize observer and releases the widget. It is safe to
// call more than once and on a widget whose mount did not complete.
func (w *Widget) Unmount() {
	w.mu.Lock()
	stop, done := w.observerStop, w.observerDone
	w.observerStop, w.observerDone = nil, nil
	w.mounted = false
	w.series = nil
	w.bars = nil
	w.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Mounted reports whether the widget is still live.
func (w *Widget) Mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted
}

func timeLayout(span time.Duration) string {
	switch {
	case span <= 48*time.Hour:
		return "15:04"
	case span <= 60*24*time.Hour:
		return "01-02 15:04"
	default:
		return "2006-01-02"
	}
}

func unixFormatter(layout string) gochart.ValueFormatter {
	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return time.Unix(int64(f), 0).UTC().Format(layout)
		}
		return ""
	}
}
