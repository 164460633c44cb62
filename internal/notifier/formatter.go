package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"SilverReport/internal/model"
	"SilverReport/internal/recorder"
)

// RunSummary is what a finished run reports to the chat.
type RunSummary struct {
	RunID      string
	Report     *model.Report
	Indicators []model.Indicators
	Biases     []model.Bias
	Took       time.Duration
	SampleData bool
}

// FormatRunSummary formats a successful generation into a Telegram message.
func FormatRunSummary(s RunSummary) string {
	var b strings.Builder

	ts := time.Now()
	if s.Report != nil && !s.Report.Timestamp.IsZero() {
		ts = s.Report.Timestamp.Time
	}
	b.WriteString(fmt.Sprintf("📊 <b>Silver Report</b> | %s\n\n", ts.Format("2006-01-02 15:04")))

	for _, ind := range s.Indicators {
		if ind.Bars == 0 {
			b.WriteString(fmt.Sprintf("%s: no data\n", ind.Asset))
			continue
		}
		b.WriteString(fmt.Sprintf("%s: %s (%+.2f%%) RSI %.0f\n",
			ind.Asset, humanize.CommafWithDigits(ind.CurrentPrice, 2), ind.ChangePct, ind.RSI))
	}

	if len(s.Biases) > 0 {
		b.WriteString("\n📈 <b>Technical bias:</b>\n")
		for _, bias := range s.Biases {
			if len(bias.Factors) == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("  %s: %s (%+.3f)\n", bias.Asset, bias.Label, bias.TotalScore))
			if bias.WarningMsg != "" {
				b.WriteString(fmt.Sprintf("  ⚠️ %s\n", html.EscapeString(bias.WarningMsg)))
			}
		}
	}

	if s.Report != nil {
		b.WriteString(fmt.Sprintf("\n📰 News items: %d\n", len(s.Report.NewsData)))
		if title := headline(s.Report.BullishReport); title != "" {
			b.WriteString(fmt.Sprintf("🚀 %s\n", html.EscapeString(title)))
		}
		if title := headline(s.Report.BearishReport); title != "" {
			b.WriteString(fmt.Sprintf("⚠️ %s\n", html.EscapeString(title)))
		}
	}
	if s.SampleData {
		b.WriteString("\n<i>Market data unavailable, sample data used.</i>\n")
	}
	b.WriteString(fmt.Sprintf("\nrun %s in %s", shortID(s.RunID), s.Took.Round(time.Second)))
	return b.String()
}

// FormatFailure formats a failed generation.
func FormatFailure(runID string, err error) string {
	return fmt.Sprintf("❌ <b>Report generation failed</b> (run %s)\n\n%s", shortID(runID), html.EscapeString(err.Error()))
}

// FormatStatus formats the generator status.
func FormatStatus(st model.GenerationStatus) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Generator status</b>\n\n")
	b.WriteString(fmt.Sprintf("State: %s\n", st.State))
	if st.RunID != "" {
		b.WriteString(fmt.Sprintf("Run: %s\n", shortID(st.RunID)))
	}
	if !st.StartedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Started: %s\n", humanize.Time(st.StartedAt.Time)))
	}
	if !st.ReportTimestamp.IsZero() {
		b.WriteString(fmt.Sprintf("Latest report: %s\n", humanize.Time(st.ReportTimestamp.Time)))
	} else {
		b.WriteString("Latest report: not generated yet\n")
	}
	if st.Error != "" {
		b.WriteString(fmt.Sprintf("Error: %s\n", html.EscapeString(st.Error)))
	}
	return b.String()
}

// FormatHistory formats recent report summaries.
func FormatHistory(rows []recorder.ReportSummary) string {
	if len(rows) == 0 {
		return "No reports recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent reports</b>\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("%s  Silver %.2f  %s (%+.2f)\n",
			r.Timestamp.Format("01-02 15:04"), r.SilverClose, r.BiasLabel, r.BiasScore))
	}
	return b.String()
}

func headline(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
