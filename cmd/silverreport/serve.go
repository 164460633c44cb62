package main

import (
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"SilverReport/internal/logging"
	"SilverReport/internal/notifier"
	"SilverReport/internal/recorder"
	"SilverReport/internal/scheduler"
	"SilverReport/internal/server"
	"SilverReport/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live report API with scheduled generation",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logging.For("serve")
	log.Info("SilverReport starting...")

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	st := store.New(rec, cfg.Export.Path)

	gen, err := buildGenerator(ctx, cfg, st, false)
	if err != nil {
		return err
	}

	var sender notifier.Sender
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, gen, st, sender)
	if err := sched.Register(cfg.Schedule.GenerateCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}
	if cfg.Schedule.RunOnStart {
		log.Info("run_on_start enabled, generating now")
		go sched.RunNow()
	}

	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, response cache disabled")
			_ = cache.Close()
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	handler := server.NewHandler(st, gen, server.Options{
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Cache:       cache,
		CacheTTL:    cfg.Redis.TTL,
		BaseContext: ctx,
	})
	return serveHTTP(ctx, cfg.HTTP.Addr, handler, log)
}
