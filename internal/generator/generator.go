// Package generator runs one report generation: collect market data and
// news, score the series, write both narratives and publish the report.
package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"SilverReport/internal/analysis"
	"SilverReport/internal/calculator"
	"SilverReport/internal/logging"
	"SilverReport/internal/model"
	"SilverReport/internal/news"
	"SilverReport/internal/recorder"
	"SilverReport/internal/sanitizer"
	"SilverReport/internal/store"
	"SilverReport/internal/strategy"
)

// ErrAlreadyRunning is returned when a run is requested while one is in progress.
var ErrAlreadyRunning = errors.New("report generation already running")

// MarketCollector gathers the raw series of every asset.
type MarketCollector interface {
	Collect(ctx context.Context) (model.MarketData, error)
}

// Narrator writes one narrative.
type Narrator interface {
	Generate(ctx context.Context, in analysis.Input, stance analysis.Stance) (string, error)
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Report     *model.Report
	Indicators []model.Indicators
	Biases     []model.Bias
	SampleData bool
	SampleNews bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the run took.
func (r *Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Options configures a Generator.
type Options struct {
	NewsQuery string
	NewsDays  int
	Policy    sanitizer.DuplicatePolicy
	// SampleFallback substitutes sample market data and news when
	// collection comes back empty.
	SampleFallback bool
}

// Generator runs report generation. At most one run is active at a time.
type Generator struct {
	collector MarketCollector
	news      news.Searcher
	narrator  Narrator
	store     *store.Store
	opts      Options
	now       func() time.Time

	mu      sync.Mutex
	running bool
	hooks   []func(*Result, error)

	log *logrus.Entry
}

// New creates a Generator.
func New(c MarketCollector, n news.Searcher, nar Narrator, st *store.Store, opts Options) *Generator {
	if opts.NewsDays < 1 {
		opts.NewsDays = 1
	}
	return &Generator{
		collector: c,
		news:      n,
		narrator:  nar,
		store:     st,
		opts:      opts,
		now:       time.Now,
		log:       logging.For("generator"),
	}
}

// OnFinish registers fn to run after every run, successful or not.
func (g *Generator) OnFinish(fn func(*Result, error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks = append(g.hooks, fn)
}

// Running reports whether a run is in progress.
func (g *Generator) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func (g *Generator) begin() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return "", ErrAlreadyRunning
	}
	g.running = true
	return uuid.NewString(), nil
}

func (g *Generator) end() []func(*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.running = false
	return append([]func(*Result, error){}, g.hooks...)
}

// Run performs one generation synchronously.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	runID, err := g.begin()
	if err != nil {
		return nil, err
	}
	return g.run(ctx, runID)
}

// Start launches a run in the background and returns its ID.
func (g *Generator) Start(ctx context.Context) (string, error) {
	runID, err := g.begin()
	if err != nil {
		return "", err
	}
	// Mark running before returning so a status poll never sees the old run.
	g.store.SetStatus(model.GenerationStatus{
		State:           model.RunRunning,
		RunID:           runID,
		StartedAt:       model.NewTimestamp(g.now()),
		ReportTimestamp: g.store.Status().ReportTimestamp,
	})
	go func() {
		_, _ = g.run(ctx, runID)
	}()
	return runID, nil
}

func (g *Generator) run(ctx context.Context, runID string) (res *Result, err error) {
	started := g.now()
	log := g.log.WithField("run_id", runID)
	prev := g.store.Status()

	g.store.SetStatus(model.GenerationStatus{
		State:           model.RunRunning,
		RunID:           runID,
		StartedAt:       model.NewTimestamp(started),
		ReportTimestamp: prev.ReportTimestamp,
	})
	log.Info("report generation started")

	defer func() {
		finished := g.now()
		st := model.GenerationStatus{
			State:      model.RunIdle,
			RunID:      runID,
			StartedAt:  model.NewTimestamp(started),
			FinishedAt: model.NewTimestamp(finished),
		}
		if err != nil {
			st.State = model.RunFailed
			st.Error = err.Error()
			st.ReportTimestamp = prev.ReportTimestamp
			log.WithError(err).Error("report generation failed")
		} else {
			st.ReportTimestamp = res.Report.Timestamp
			log.WithField("took", finished.Sub(started).Round(time.Millisecond)).Info("report generation completed")
		}
		g.store.SetStatus(st)
		g.store.RecordRun(&recorder.RunEvent{
			RunID:      runID,
			State:      st.State,
			StartedAt:  started,
			FinishedAt: finished,
			Error:      st.Error,
		})
		for _, fn := range g.end() {
			fn(res, err)
		}
	}()

	res, err = g.generate(ctx, runID, log)
	if err == nil {
		res.StartedAt = started
		res.FinishedAt = g.now()
		g.store.Publish(runID, res.Report, res.Biases)
	}
	return res, err
}

func (g *Generator) generate(ctx context.Context, runID string, log *logrus.Entry) (*Result, error) {
	res := &Result{RunID: runID}

	log.Info("collecting market data")
	market, err := g.collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect market data: %w", err)
	}
	if g.opts.SampleFallback && len(market[model.Silver]) == 0 {
		log.Warn("market data collection failed, using sample data")
		market = sampleMarketData(g.now())
		res.SampleData = true
	}

	log.Info("collecting news")
	items, err := g.news.Search(ctx, g.opts.NewsQuery, g.opts.NewsDays)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("collect news: %w", ctx.Err())
		}
		log.WithError(err).Warn("collect news")
		items = nil
	}
	if len(items) == 0 {
		items = []model.NewsItem{}
		if g.opts.SampleFallback {
			log.Warn("news collection failed, using sample item")
			items = sampleNews(g.now())
			res.SampleNews = true
		}
	}

	for _, asset := range model.Assets {
		bars := sanitizer.Sanitize(market[asset], g.opts.Policy)
		ind := calculator.Compute(asset, bars)
		res.Indicators = append(res.Indicators, ind)
		res.Biases = append(res.Biases, strategy.Evaluate(ind))
	}

	in := analysis.Input{MarketData: market, News: items, Biases: res.Biases}
	bullish := g.narrate(ctx, in, analysis.Bullish, log)
	bearish := g.narrate(ctx, in, analysis.Bearish, log)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate narratives: %w", err)
	}

	res.Report = &model.Report{
		Timestamp:     model.NewTimestamp(g.now()),
		BullishReport: bullish,
		BearishReport: bearish,
		MarketData:    market,
		NewsData:      items,
	}
	return res, nil
}

// narrate never fails the run; an analysis error becomes the narrative text.
func (g *Generator) narrate(ctx context.Context, in analysis.Input, stance analysis.Stance, log *logrus.Entry) string {
	text, err := g.narrator.Generate(ctx, in, stance)
	if err != nil {
		log.WithError(err).WithField("stance", stance).Error("generate narrative")
		return fmt.Sprintf("Analysis error: %v", err)
	}
	return text
}
