// Package news collects recent articles about the tracked markets.
package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"SilverReport/internal/logging"
	"SilverReport/internal/model"
)

const tavilyBaseURL = "https://api.tavily.com"

// Searcher finds news articles for a query over the last days.
type Searcher interface {
	Search(ctx context.Context, query string, days int) ([]model.NewsItem, error)
}

// TavilyClient searches the Tavily news index.
type TavilyClient struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
	log     *logrus.Entry
}

// NewTavilyClient creates a client. An empty apiKey disables searching.
func NewTavilyClient(apiKey, proxyURL string) *TavilyClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TavilyClient{
		APIKey:  apiKey,
		BaseURL: tavilyBaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second, Transport: transport},
		log:     logging.For("news"),
	}
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	Topic       string `json:"topic"`
	Days        int    `json:"days"`
}

type searchResponse struct {
	Results []model.NewsItem `json:"results"`
}

// Search returns the matching articles. Without an API key it logs a
// warning and returns an empty list.
func (c *TavilyClient) Search(ctx context.Context, query string, days int) ([]model.NewsItem, error) {
	if c.APIKey == "" {
		c.logger().Warn("tavily api key not set, skipping news")
		return []model.NewsItem{}, nil
	}

	payload, err := json.Marshal(searchRequest{
		APIKey:      c.APIKey,
		Query:       query,
		SearchDepth: "advanced",
		Topic:       "news",
		Days:        days,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search: %w", err)
	}

	base := c.BaseURL
	if base == "" {
		base = tavilyBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tavily read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily: status %d, body: %s", resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("tavily decode: %w", err)
	}
	if out.Results == nil {
		out.Results = []model.NewsItem{}
	}
	c.logger().WithField("results", len(out.Results)).Debug("news collected")
	return out.Results, nil
}

func (c *TavilyClient) logger() *logrus.Entry {
	if c.log == nil {
		c.log = logging.For("news")
	}
	return c.log
}
