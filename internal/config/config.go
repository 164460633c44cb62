package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SilverReport/internal/chart"
	"SilverReport/internal/sanitizer"
)

// Source modes.
const (
	ModeStatic = "static"
	ModeAPI    = "api"
)

// Config holds all application configuration.
type Config struct {
	Source struct {
		Mode         string        `yaml:"mode"` // "static" or "api"
		URL          string        `yaml:"url"`
		Path         string        `yaml:"path"`
		Timeout      time.Duration `yaml:"timeout"`
		PollInterval time.Duration `yaml:"poll_interval"`
		WaitTimeout  time.Duration `yaml:"wait_timeout"`
	} `yaml:"source"`
	HTTP struct {
		Addr          string   `yaml:"addr"`
		DashboardAddr string   `yaml:"dashboard_addr"`
		CORSOrigins   []string `yaml:"cors_origins"`
	} `yaml:"http"`
	Chart struct {
		DuplicatePolicy string `yaml:"duplicate_policy"` // "first" or "last"
		Width           int    `yaml:"width"`
		Height          int    `yaml:"height"`
		BackgroundColor string `yaml:"background_color"`
		TextColor       string `yaml:"text_color"`
		LineColor       string `yaml:"line_color"`
	} `yaml:"chart"`
	Collector struct {
		Interval string `yaml:"interval"`
		Range    string `yaml:"range"`
	} `yaml:"collector"`
	News struct {
		APIKey string `yaml:"api_key"`
		Query  string `yaml:"query"`
		Days   int    `yaml:"days"`
	} `yaml:"news"`
	Analysis struct {
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"analysis"`
	Schedule struct {
		GenerateCron string `yaml:"generate_cron"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Export struct {
		Path string `yaml:"path"`
	} `yaml:"export"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REPORT_SOURCE_MODE"); v != "" {
		cfg.Source.Mode = v
	}
	if v := os.Getenv("REPORT_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("REPORT_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("DASHBOARD_ADDR"); v != "" {
		cfg.HTTP.DashboardAddr = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Analysis.APIKey = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		cfg.News.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("CRON_GENERATE"); v != "" {
		cfg.Schedule.GenerateCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		cfg.Schedule.RunOnStart, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("EXPORT_PATH"); v != "" {
		cfg.Export.Path = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Source.Mode == "" {
		cfg.Source.Mode = ModeStatic
	}
	if cfg.Source.Mode == ModeStatic && cfg.Source.URL == "" && cfg.Source.Path == "" {
		cfg.Source.Path = "public/data.json"
	}
	if cfg.Source.Mode == ModeAPI && cfg.Source.URL == "" {
		cfg.Source.URL = "http://localhost:8000"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 15 * time.Second
	}
	if cfg.Source.PollInterval == 0 {
		cfg.Source.PollInterval = 2 * time.Second
	}
	if cfg.Source.WaitTimeout == 0 {
		cfg.Source.WaitTimeout = 3 * time.Minute
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = "0.0.0.0:8000"
	}
	if cfg.HTTP.DashboardAddr == "" {
		cfg.HTTP.DashboardAddr = "0.0.0.0:3000"
	}
	if len(cfg.HTTP.CORSOrigins) == 0 {
		cfg.HTTP.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Chart.DuplicatePolicy == "" {
		cfg.Chart.DuplicatePolicy = "last"
	}
	if cfg.Chart.Width == 0 {
		cfg.Chart.Width = 800
	}
	if cfg.Chart.Height == 0 {
		cfg.Chart.Height = 300
	}
	if cfg.Collector.Interval == "" {
		cfg.Collector.Interval = "1h"
	}
	if cfg.Collector.Range == "" {
		cfg.Collector.Range = "7d"
	}
	if cfg.News.Query == "" {
		cfg.News.Query = "Silver price generic news"
	}
	if cfg.News.Days == 0 {
		cfg.News.Days = 1
	}
	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = "gemini-2.0-flash"
	}
	if cfg.Analysis.Timeout == 0 {
		cfg.Analysis.Timeout = 2 * time.Minute
	}
	if cfg.Schedule.GenerateCron == "" {
		cfg.Schedule.GenerateCron = "0 0 * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/silver_report.db"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 30 * time.Second
	}
	if cfg.Export.Path == "" {
		cfg.Export.Path = "public/data.json"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	switch c.Source.Mode {
	case ModeStatic:
		if c.Source.URL == "" && c.Source.Path == "" {
			return fmt.Errorf("source.url or source.path is required in static mode")
		}
	case ModeAPI:
		if c.Source.URL == "" {
			return fmt.Errorf("source.url is required in api mode")
		}
	default:
		return fmt.Errorf("source.mode must be one of: %s, %s", ModeStatic, ModeAPI)
	}
	if c.Source.PollInterval <= 0 {
		return fmt.Errorf("source.poll_interval must be positive")
	}
	if _, err := sanitizer.ParsePolicy(c.Chart.DuplicatePolicy); err != nil {
		return fmt.Errorf("chart.duplicate_policy: %w", err)
	}
	if c.Chart.Width < 1 || c.Chart.Height < 1 {
		return fmt.Errorf("chart.width and chart.height must be positive")
	}
	if err := c.ChartColors().Validate(); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if c.Schedule.GenerateCron == "" {
		return fmt.Errorf("schedule.generate_cron is required")
	}
	if c.News.Days < 1 {
		return fmt.Errorf("news.days must be at least 1")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}
	return nil
}

// ChartColors returns the configured chart palette. Unset colors take the
// chart defaults.
func (c *Config) ChartColors() chart.Colors {
	return chart.Colors{
		Background: c.Chart.BackgroundColor,
		Text:       c.Chart.TextColor,
		Line:       c.Chart.LineColor,
	}
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
