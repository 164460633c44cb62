package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"SilverReport/internal/analysis"
	"SilverReport/internal/collector"
	"SilverReport/internal/config"
	"SilverReport/internal/generator"
	"SilverReport/internal/logging"
	"SilverReport/internal/news"
	"SilverReport/internal/recorder"
	"SilverReport/internal/sanitizer"
	"SilverReport/internal/store"
)

var outputPath string

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one report and write the static export",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "export path (default export.path)")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outputPath != "" {
		cfg.Export.Path = outputPath
	}
	ctx := cmd.Context()
	log := logging.For("generate")

	st := store.New(recorder.NewNoopRecorder(), cfg.Export.Path)
	gen, err := buildGenerator(ctx, cfg, st, true)
	if err != nil {
		return err
	}

	res, err := gen.Run(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	log.WithFields(logrus.Fields{
		"run_id": res.RunID,
		"path":   cfg.Export.Path,
		"took":   res.Duration().Round(time.Millisecond),
		"news":   humanize.Comma(int64(len(res.Report.NewsData))),
		"sample": res.SampleData,
	}).Info("static report written")
	return nil
}

// buildGenerator wires the collectors and the narrative service.
// sampleFallback substitutes sample data when collection comes back empty.
func buildGenerator(ctx context.Context, cfg *config.Config, st *store.Store, sampleFallback bool) (*generator.Generator, error) {
	fetcher := collector.NewYahooFetcher(cfg.Proxy)
	col := collector.NewCollector(fetcher, cfg.Collector.Interval, cfg.Collector.Range)
	searcher := news.NewTavilyClient(cfg.News.APIKey, cfg.Proxy)

	svc, err := analysis.NewService(ctx, cfg.Analysis.APIKey, cfg.Analysis.Model, cfg.Analysis.Timeout)
	if err != nil {
		return nil, fmt.Errorf("init analysis service: %w", err)
	}

	policy, err := sanitizer.ParsePolicy(cfg.Chart.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	return generator.New(col, searcher, svc, st, generator.Options{
		NewsQuery:      cfg.News.Query,
		NewsDays:       cfg.News.Days,
		Policy:         policy,
		SampleFallback: sampleFallback,
	}), nil
}
