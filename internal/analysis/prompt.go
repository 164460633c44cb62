package analysis

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"SilverReport/internal/model"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// Context limits in characters.
const (
	MaxMarketChars = 5000
	MaxNewsChars   = 3000
)

// Stance selects the narrative's direction.
type Stance string

const (
	Bullish Stance = "bullish"
	Bearish Stance = "bearish"
)

// ParseStance accepts "bullish" or "bearish" in any case.
func ParseStance(s string) (Stance, error) {
	switch st := Stance(strings.ToLower(strings.TrimSpace(s))); st {
	case Bullish, Bearish:
		return st, nil
	default:
		return "", fmt.Errorf("invalid report type %q, use bullish or bearish", s)
	}
}

// Input is the data a narrative is written from.
type Input struct {
	MarketData model.MarketData
	News       []model.NewsItem
	Biases     []model.Bias
}

type promptData struct {
	MarketData string
	NewsData   string
	Technical  string
}

// BuildPrompt renders the stance's template with truncated context.
func BuildPrompt(in Input, stance Stance) (string, error) {
	market, err := json.Marshal(in.MarketData)
	if err != nil {
		return "", fmt.Errorf("marshal market data: %w", err)
	}
	news, err := json.Marshal(in.News)
	if err != nil {
		return "", fmt.Errorf("marshal news: %w", err)
	}

	var buf bytes.Buffer
	err = prompts.ExecuteTemplate(&buf, string(stance)+".tmpl", promptData{
		MarketData: truncate(string(market), MaxMarketChars),
		NewsData:   truncate(string(news), MaxNewsChars),
		Technical:  technicalSummary(in.Biases),
	})
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", stance, err)
	}
	return buf.String(), nil
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func technicalSummary(biases []model.Bias) string {
	if len(biases) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, bias := range biases {
		fmt.Fprintf(&b, "- %s: %s (score %+.2f)", bias.Asset, bias.Label, bias.TotalScore)
		for _, f := range bias.Factors {
			fmt.Fprintf(&b, "; %s %s", f.Name, f.Commentary)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
