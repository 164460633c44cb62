package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SilverReport/internal/model"
	"SilverReport/internal/recorder"
)

func sampleReport(ts time.Time) *model.Report {
	return &model.Report{
		Timestamp:     model.NewTimestamp(ts),
		BullishReport: "# 낙관 <b>",
		BearishReport: "# 비관",
		MarketData:    model.MarketData{model.Silver: {{Datetime: "2024-05-01T10:00:00", Open: 30.5, High: 30.8, Low: 30.3, Close: 30.6}}},
		NewsData:      []model.NewsItem{},
	}
}

func TestNew_Placeholder(t *testing.T) {
	s := New(nil, "")
	rep := s.Latest()
	assert.Equal(t, "Not generated yet.", rep.BullishReport)
	assert.True(t, rep.Timestamp.IsZero())
	assert.Equal(t, model.RunIdle, s.Status().State)
}

func TestSaveLoadReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "data.json")
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, SaveReport(path, sampleReport(ts)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# 낙관 <b>")

	rep, err := LoadReport(path)
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.True(t, rep.Timestamp.Equal(ts))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	missing, err := LoadReport(filepath.Join(t.TempDir(), "none.json"))
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNew_RestoresFromExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, SaveReport(path, sampleReport(ts)))

	s := New(recorder.NewNoopRecorder(), path)
	assert.Equal(t, "# 비관", s.Latest().BearishReport)
	assert.True(t, s.Status().ReportTimestamp.Equal(ts))
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "r.db"))
	require.NoError(t, err)
	defer rec.Close()

	exportPath := filepath.Join(dir, "data.json")
	s := New(rec, exportPath)

	var notified []*model.Report
	s.OnUpdate(func(r *model.Report) { notified = append(notified, r) })

	rep := sampleReport(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	biases := []model.Bias{{Asset: model.Silver, Label: "Neutral"}}
	s.Publish("run-1", rep, biases)

	assert.Same(t, rep, s.Latest())
	assert.Equal(t, biases, s.Biases())
	require.Len(t, notified, 1)
	assert.Same(t, rep, notified[0])

	fromDB, err := rec.LatestReport()
	require.NoError(t, err)
	assert.Equal(t, rep.BullishReport, fromDB.BullishReport)

	fromFile, err := LoadReport(exportPath)
	require.NoError(t, err)
	assert.Equal(t, rep.BullishReport, fromFile.BullishReport)

	hist, err := s.History(5)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "run-1", hist[0].RunID)

	// A fresh store picks the report up from history.
	again := New(rec, "")
	assert.Equal(t, rep.BullishReport, again.Latest().BullishReport)
}

func TestStatus(t *testing.T) {
	s := New(nil, "")
	s.SetStatus(model.GenerationStatus{State: model.RunRunning, RunID: "abc"})
	st := s.Status()
	assert.Equal(t, model.RunRunning, st.State)
	assert.Equal(t, "abc", st.RunID)
}
