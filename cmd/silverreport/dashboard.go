package main

import (
	"github.com/spf13/cobra"

	"SilverReport/internal/dashboard"
	"SilverReport/internal/logging"
	"SilverReport/internal/reportclient"
	"SilverReport/internal/sanitizer"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the dashboard against the static export or the live API",
	RunE:  runDashboard,
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logging.For("dashboard")

	src, err := reportclient.New(cfg)
	if err != nil {
		return err
	}
	policy, err := sanitizer.ParsePolicy(cfg.Chart.DuplicatePolicy)
	if err != nil {
		return err
	}

	page, err := dashboard.New(src, dashboard.Options{
		Policy:       policy,
		Width:        cfg.Chart.Width,
		Height:       cfg.Chart.Height,
		Colors:       cfg.ChartColors(),
		PollInterval: cfg.Source.PollInterval,
		WaitTimeout:  cfg.Source.WaitTimeout,
	})
	if err != nil {
		return err
	}
	defer page.Close()

	log.WithField("source", src.Name()).Info("dashboard starting")
	if err := page.Load(ctx); err != nil {
		log.WithError(err).Warn("initial report load failed, showing no data")
	}
	return serveHTTP(ctx, cfg.HTTP.DashboardAddr, dashboard.NewHandler(page), log)
}
