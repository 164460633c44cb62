// Package store holds the latest report and generation status and fans a
// new report out to the recorder, the export file and update listeners.
package store

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"SilverReport/internal/logging"
	"SilverReport/internal/model"
	"SilverReport/internal/recorder"
)

// Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	report    *model.Report
	biases    []model.Bias
	status    model.GenerationStatus
	listeners []func(*model.Report)

	rec        recorder.Recorder
	exportPath string
	log        *logrus.Entry
}

// New creates a Store. The initial report is the newest of the recorder
// history, then the export file, then the placeholder.
func New(rec recorder.Recorder, exportPath string) *Store {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	s := &Store{
		rec:        rec,
		exportPath: exportPath,
		status:     model.GenerationStatus{State: model.RunIdle},
		log:        logging.For("store"),
	}

	rep, err := rec.LatestReport()
	switch {
	case err == nil:
		s.log.WithField("timestamp", rep.Timestamp.Time).Info("restored report from history")
	case !errors.Is(err, recorder.ErrNotFound):
		s.log.WithError(err).Warn("load report history")
	}
	if rep == nil && exportPath != "" {
		if rep, err = LoadReport(exportPath); err != nil {
			s.log.WithError(err).Warn("load exported report")
		} else if rep != nil {
			s.log.WithField("path", exportPath).Info("restored report from export")
		}
	}
	if rep == nil {
		rep = model.PlaceholderReport()
	}
	s.report = rep
	if !rep.Timestamp.IsZero() {
		s.status.ReportTimestamp = rep.Timestamp
	}
	return s
}

// Latest returns the current report. Callers must not modify it.
func (s *Store) Latest() *model.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Biases returns the technical biases computed with the current report.
func (s *Store) Biases() []model.Bias {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Bias(nil), s.biases...)
}

// Status returns a copy of the generation status.
func (s *Store) Status() model.GenerationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus replaces the generation status.
func (s *Store) SetStatus(st model.GenerationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

// OnUpdate registers fn to run after every Publish.
func (s *Store) OnUpdate(fn func(*model.Report)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Publish swaps in rep as the latest report, records it and writes the
// export file. Persistence failures are logged; the in-memory swap always
// happens.
func (s *Store) Publish(runID string, rep *model.Report, biases []model.Bias) {
	s.mu.Lock()
	s.report = rep
	s.biases = append([]model.Bias(nil), biases...)
	listeners := make([]func(*model.Report), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	log := s.log.WithField("run_id", runID)
	if err := s.rec.RecordReport(&recorder.ReportRecord{RunID: runID, Report: rep, Biases: biases}); err != nil {
		log.WithError(err).Error("record report")
	}
	if s.exportPath != "" {
		if err := SaveReport(s.exportPath, rep); err != nil {
			log.WithError(err).Error("export report")
		} else {
			log.WithField("path", s.exportPath).Debug("report exported")
		}
	}
	for _, fn := range listeners {
		fn(rep)
	}
}

// RecordRun forwards a run outcome to the recorder.
func (s *Store) RecordRun(evt *recorder.RunEvent) {
	if err := s.rec.RecordRun(evt); err != nil {
		s.log.WithError(err).Error("record run")
	}
}

// History returns recent report summaries from the recorder.
func (s *Store) History(limit int) ([]recorder.ReportSummary, error) {
	return s.rec.History(limit)
}
