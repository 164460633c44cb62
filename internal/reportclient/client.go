// Package reportclient fetches the market report from a static export or
// from the live API, and requests regeneration where the source allows it.
package reportclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"SilverReport/internal/config"
	"SilverReport/internal/model"
)

// Source delivers reports. Implementations hold no report state.
type Source interface {
	FetchLatest(ctx context.Context) (*model.Report, error)
	TriggerRegeneration(ctx context.Context) error
	Status(ctx context.Context) (*model.GenerationStatus, error)
	Name() string
}

// New builds the Source selected by cfg.Source.Mode.
func New(cfg *config.Config) (Source, error) {
	client := newHTTPClient(cfg.Source.Timeout, cfg.Proxy)
	switch cfg.Source.Mode {
	case config.ModeStatic:
		return &StaticSource{Path: cfg.Source.Path, BaseURL: cfg.Source.URL, Client: client}, nil
	case config.ModeAPI:
		return &APISource{BaseURL: cfg.Source.URL, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown source mode %q", cfg.Source.Mode)
	}
}

func newHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// StaticDataFile is the fixed relative path of the static export.
const StaticDataFile = "data.json"

// StaticSource reads the exported report from disk (Path) or from a static
// web host (BaseURL + "/data.json"). Path wins when both are set.
type StaticSource struct {
	Path    string
	BaseURL string
	Client  *http.Client
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) FetchLatest(ctx context.Context) (*model.Report, error) {
	if s.Path != "" {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, networkErr("read report file", err)
		}
		return decodeReport(data)
	}
	return getReport(ctx, s.Client, staticURL(s.BaseURL))
}

// TriggerRegeneration always fails: a static export cannot be regenerated
// from the client. No I/O is performed.
func (s *StaticSource) TriggerRegeneration(context.Context) error {
	return &NotSupportedError{Op: "trigger regeneration", Message: StaticTriggerMessage}
}

func (s *StaticSource) Status(context.Context) (*model.GenerationStatus, error) {
	return nil, &NotSupportedError{Op: "generation status", Message: StaticTriggerMessage}
}

func staticURL(base string) string {
	if strings.HasSuffix(base, ".json") {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + StaticDataFile
}

// APISource talks to the live report service.
type APISource struct {
	BaseURL string
	Client  *http.Client
}

func (a *APISource) Name() string { return "api" }

func (a *APISource) endpoint(path string) string {
	return strings.TrimRight(a.BaseURL, "/") + path
}

func (a *APISource) FetchLatest(ctx context.Context) (*model.Report, error) {
	return getReport(ctx, a.Client, a.endpoint("/report/latest"))
}

// TriggerRegeneration returns once the service acknowledges the request,
// not once the new report exists. Use WaitForReport to wait for it.
func (a *APISource) TriggerRegeneration(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("/trigger-report"), nil)
	if err != nil {
		return networkErr("trigger regeneration", err)
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return networkErr("trigger regeneration", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return networkErr("trigger regeneration", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (a *APISource) Status(ctx context.Context) (*model.GenerationStatus, error) {
	body, err := get(ctx, a.Client, a.endpoint("/report/status"))
	if err != nil {
		return nil, networkErr("fetch status", err)
	}
	var st model.GenerationStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, decodeErr("decode status", err)
	}
	return &st, nil
}

func getReport(ctx context.Context, client *http.Client, u string) (*model.Report, error) {
	body, err := get(ctx, client, u)
	if err != nil {
		return nil, networkErr("fetch report", err)
	}
	return decodeReport(body)
}

func get(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// decodeReport parses a report document. Numbers inside market data are kept
// as json.Number so the sanitizer sees the upstream text.
func decodeReport(data []byte) (*model.Report, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, decodeErr("decode report", fmt.Errorf("expected a JSON object"))
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var r model.Report
	if err := dec.Decode(&r); err != nil {
		return nil, decodeErr("decode report", err)
	}
	if r.MarketData == nil {
		r.MarketData = model.MarketData{}
	}
	return &r, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
