package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"SilverReport/internal/generator"
	"SilverReport/internal/logging"
	"SilverReport/internal/notifier"
	"SilverReport/internal/store"
)

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Generator *generator.Generator
	Store     *store.Store
	Notifier  notifier.Sender
	Ctx       context.Context

	log *logrus.Entry
}

// NewScheduler creates a new Scheduler. A nil notifier disables chat messages.
func NewScheduler(ctx context.Context, gen *generator.Generator, st *store.Store, n notifier.Sender) *Scheduler {
	s := &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Generator: gen,
		Store:     st,
		Notifier:  n,
		Ctx:       ctx,
		log:       logging.For("scheduler"),
	}
	gen.OnFinish(s.notifyResult)
	return s
}

// Register registers the report generation task.
func (s *Scheduler) Register(generateCron string) error {
	if _, err := s.Cron.AddFunc(generateCron, s.generateTask); err != nil {
		return fmt.Errorf("register generate task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes the generation task immediately (RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.generateTask()
}

func (s *Scheduler) generateTask() {
	s.log.Info("running generate task")
	if _, err := s.Generator.Run(s.Ctx); err != nil {
		if errors.Is(err, generator.ErrAlreadyRunning) {
			s.log.Info("generation already running, tick skipped")
		}
		// Failures are reported by notifyResult.
	}
}

func (s *Scheduler) notifyResult(res *generator.Result, err error) {
	if err != nil {
		runID := s.Store.Status().RunID
		s.trySend(notifier.FormatFailure(runID, err))
		return
	}
	s.trySend(notifier.FormatRunSummary(notifier.RunSummary{
		RunID:      res.RunID,
		Report:     res.Report,
		Indicators: res.Indicators,
		Biases:     res.Biases,
		Took:       res.Duration(),
		SampleData: res.SampleData,
	}))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	var name string
	if fields := strings.Fields(command); len(fields) > 0 {
		name = strings.ToLower(fields[0])
	}
	switch name {
	case "/report", "/generate":
		runID, err := s.Generator.Start(s.Ctx)
		if errors.Is(err, generator.ErrAlreadyRunning) {
			return "⏳ A report is already being generated."
		}
		if err != nil {
			return notifier.FormatFailure("", err)
		}
		return fmt.Sprintf("🛠 Report generation started (run %s).", runID[:8])
	case "/status":
		return notifier.FormatStatus(s.Store.Status())
	case "/history":
		rows, err := s.Store.History(10)
		if err != nil {
			s.log.WithError(err).Error("load history")
			return "History is unavailable."
		}
		return notifier.FormatHistory(rows)
	default:
		return "Available commands:\n• /report - generate a new report\n• /status - generator status\n• /history - recent reports"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.WithError(err).Error("send notification")
	}
}
