package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"SilverReport/internal/logging"
	"SilverReport/internal/model"
	"SilverReport/internal/sanitizer"
)

// SQLiteRecorder persists report history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logrus.Entry
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logging.For("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			run_id       TEXT NOT NULL,
			silver_close REAL,
			bias_score   REAL,
			bias_label   TEXT,
			payload      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_ts ON reports(timestamp)`,

		`CREATE TABLE IF NOT EXISTS generation_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			state       TEXT NOT NULL,
			started_at  INTEGER,
			finished_at INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON generation_runs(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordReport(rec *ReportRecord) error {
	if rec == nil || rec.Report == nil {
		return errors.New("record report: nil report")
	}
	payload, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	ts := rec.Report.Timestamp.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var silverClose float64
	if bars := sanitizer.Sanitize(rec.Report.MarketData[model.Silver], sanitizer.KeepLast); len(bars) > 0 {
		silverClose = bars[len(bars)-1].Close
	}
	var score float64
	var label string
	for _, b := range rec.Biases {
		if b.Asset == model.Silver {
			score, label = b.TotalScore, b.Label
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(`INSERT INTO reports
		(timestamp, run_id, silver_close, bias_score, bias_label, payload)
		VALUES (?,?,?,?,?,?)`,
		ts.Unix(), rec.RunID, silverClose, score, label, string(payload),
	)
	return err
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO generation_runs
		(run_id, state, started_at, finished_at, error)
		VALUES (?,?,?,?,?)`,
		evt.RunID, string(evt.State), evt.StartedAt.Unix(), evt.FinishedAt.Unix(), evt.Error,
	)
	return err
}

// LatestReport loads the most recently recorded report.
func (r *SQLiteRecorder) LatestReport() (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var payload string
	err := r.db.QueryRow(`SELECT payload FROM reports ORDER BY timestamp DESC, id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest report: %w", err)
	}

	var rep model.Report
	if err := json.Unmarshal([]byte(payload), &rep); err != nil {
		return nil, fmt.Errorf("decode latest report: %w", err)
	}
	if rep.MarketData == nil {
		rep.MarketData = model.MarketData{}
	}
	return &rep, nil
}

// History returns up to limit report summaries, newest first.
func (r *SQLiteRecorder) History(limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, timestamp, silver_close, bias_score, bias_label
		FROM reports ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var s ReportSummary
		var ts int64
		if err := rows.Scan(&s.RunID, &ts, &s.SilverClose, &s.BiasScore, &s.BiasLabel); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		s.Timestamp = time.Unix(ts, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
