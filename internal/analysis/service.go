// Package analysis writes the bullish and bearish narratives with Gemini.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"SilverReport/internal/logging"
)

// UnavailableText is the narrative used when no API key is configured.
const UnavailableText = "AI analysis unavailable (GEMINI_API_KEY not set)."

// TextGenerator produces text for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator creates a Gemini API client.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.7)),
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}, config)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

// Service renders prompts and asks the generator for narratives.
type Service struct {
	Generator TextGenerator
	Model     string
	Timeout   time.Duration

	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	log *logrus.Entry
}

// NewService builds a Gemini-backed service. An empty apiKey yields a
// service that returns UnavailableText.
func NewService(ctx context.Context, apiKey, model string, timeout time.Duration) (*Service, error) {
	s := &Service{
		Model:          model,
		Timeout:        timeout,
		MaxRetries:     2,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		log:            logging.For("analysis"),
	}
	if apiKey == "" {
		s.log.Warn("gemini api key not set, narratives disabled")
		return s, nil
	}
	gen, err := NewGeminiGenerator(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	s.Generator = gen
	return s, nil
}

// Available reports whether a generator is configured.
func (s *Service) Available() bool { return s.Generator != nil }

// Generate writes one narrative for stance.
func (s *Service) Generate(ctx context.Context, in Input, stance Stance) (string, error) {
	if !s.Available() {
		return UnavailableText, nil
	}
	prompt, err := BuildPrompt(in, stance)
	if err != nil {
		return "", err
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	log := s.logger().WithField("stance", stance)
	log.Info("generating report")

	var text string
	backoff := s.InitialBackoff
	for attempt := 0; ; attempt++ {
		text, err = s.Generator.GenerateText(ctx, s.Model, prompt)
		if err == nil {
			return text, nil
		}
		if attempt >= s.MaxRetries {
			break
		}
		log.WithError(err).WithField("attempt", attempt+1).Warn("generate failed, retrying")
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("generate %s report: %w", stance, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if s.MaxBackoff > 0 && backoff > s.MaxBackoff {
			backoff = s.MaxBackoff
		}
	}
	return "", fmt.Errorf("generate %s report after %d attempts: %w", stance, s.MaxRetries+1, err)
}

func (s *Service) logger() *logrus.Entry {
	if s.log == nil {
		s.log = logging.For("analysis")
	}
	return s.log
}
