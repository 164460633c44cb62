package recorder

import (
	"errors"
	"time"

	"SilverReport/internal/model"
)

// ErrNotFound is returned by LatestReport when nothing was recorded yet.
var ErrNotFound = errors.New("no recorded report")

// ReportRecord holds everything persisted for one successful run.
type ReportRecord struct {
	RunID  string
	Report *model.Report
	Biases []model.Bias
}

// RunEvent records the outcome of one generation run.
type RunEvent struct {
	RunID      string
	State      model.RunState
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// ReportSummary is one row of the report history.
type ReportSummary struct {
	RunID       string
	Timestamp   time.Time
	SilverClose float64
	BiasScore   float64
	BiasLabel   string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordReport(rec *ReportRecord) error
	RecordRun(evt *RunEvent) error
	LatestReport() (*model.Report, error)
	History(limit int) ([]ReportSummary, error)
	Close() error
}
