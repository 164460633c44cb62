package recorder

import "SilverReport/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordReport(_ *ReportRecord) error     { return nil }
func (n *NoopRecorder) RecordRun(_ *RunEvent) error            { return nil }
func (n *NoopRecorder) LatestReport() (*model.Report, error)   { return nil, ErrNotFound }
func (n *NoopRecorder) History(_ int) ([]ReportSummary, error) { return nil, nil }
func (n *NoopRecorder) Close() error                           { return nil }
