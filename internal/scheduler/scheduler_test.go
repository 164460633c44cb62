package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SilverReport/internal/analysis"
	"SilverReport/internal/generator"
	"SilverReport/internal/model"
	"SilverReport/internal/store"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingSender) SendWithRetry(_ context.Context, text string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
	return nil
}

func (r *recordingSender) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

type stubCollector struct{ err error }

func (s stubCollector) Collect(context.Context) (model.MarketData, error) {
	if s.err != nil {
		return nil, s.err
	}
	return model.MarketData{model.Silver: {{Datetime: "2024-05-01T10:00:00", Open: 1, High: 1, Low: 1, Close: 1}}}, nil
}

type stubNews struct{}

func (stubNews) Search(context.Context, string, int) ([]model.NewsItem, error) { return nil, nil }

type stubNarrator struct{}

func (stubNarrator) Generate(_ context.Context, _ analysis.Input, s analysis.Stance) (string, error) {
	return "# " + string(s), nil
}

func newTestScheduler(t *testing.T, collectErr error) (*Scheduler, *recordingSender) {
	t.Helper()
	st := store.New(nil, "")
	gen := generator.New(stubCollector{err: collectErr}, stubNews{}, stubNarrator{}, st, generator.Options{})
	sender := &recordingSender{}
	return NewScheduler(context.Background(), gen, st, sender), sender
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	require.NoError(t, s.Register("0 0 * * * *"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("every hour"))
}

func TestRunNow_NotifiesSummary(t *testing.T) {
	s, sender := newTestScheduler(t, nil)
	s.RunNow()

	msgs := sender.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Silver Report")
	assert.Equal(t, model.RunIdle, s.Store.Status().State)
}

func TestRunNow_NotifiesFailure(t *testing.T) {
	s, sender := newTestScheduler(t, errors.New("yahoo down"))
	s.RunNow()

	msgs := sender.all()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Report generation failed")
	assert.Contains(t, msgs[0], "yahoo down")
}

func TestHandleCommand(t *testing.T) {
	s, sender := newTestScheduler(t, nil)

	reply := s.HandleCommand("/report")
	assert.True(t, strings.HasPrefix(reply, "🛠 Report generation started"), reply)
	assert.Eventually(t, func() bool { return len(sender.all()) == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Contains(t, s.HandleCommand("/status"), "Generator status")
	assert.Equal(t, "No reports recorded yet.", s.HandleCommand("/history"))
	assert.Contains(t, s.HandleCommand("hello"), "Available commands")
	assert.Contains(t, s.HandleCommand(""), "Available commands")
}
