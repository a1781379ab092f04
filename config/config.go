package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete bot configuration, read once at startup.
// Live reconfiguration is not supported.
type Config struct {
	Mode     string         `yaml:"mode"` // paper | live
	Feed     FeedConfig     `yaml:"feed"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Venue    VenueConfig    `yaml:"venue"`
	Trading  TradingConfig  `yaml:"trading"`
	Survival SurvivalConfig `yaml:"survival"`
	Resolver ResolverConfig `yaml:"resolver"`
	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
	Log      LogConfig      `yaml:"log"`
}

// FeedConfig controls the streaming price source.
type FeedConfig struct {
	URL          string `yaml:"url"`
	Symbol       string `yaml:"symbol"`
	MaxLatencyMS int    `yaml:"max_latency_ms"` // ticks above this are tagged stale
	BufferSize   int    `yaml:"buffer_size"`    // tick channel depth (drop-oldest)
}

// CatalogConfig controls the market catalog cache.
type CatalogConfig struct {
	RefreshSeconds int `yaml:"refresh_seconds"`
}

// VenueConfig contains the market venue endpoints and credentials.
type VenueConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` // VENUE_API_KEY overrides
}

// TradingConfig holds the sizing and gating knobs.
type TradingConfig struct {
	InitialCapital         float64 `yaml:"initial_capital"`
	MaxBetPct              float64 `yaml:"max_bet_pct"` // fraction, 0.20 = 20%
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions"`
	MinEdgePct             float64 `yaml:"min_edge_pct"` // initial edge threshold
	ImpliedScale           float64 `yaml:"implied_scale"`
	KellyFraction          float64 `yaml:"kelly_fraction"` // 0.5 = half-Kelly
}

// SurvivalConfig tunes the risk state machine.
type SurvivalConfig struct {
	LossStreak         int     `yaml:"loss_streak"`     // losses before WOUNDED
	WinStreak          int     `yaml:"win_streak"`      // wins to recover from WOUNDED
	ThriveWinRate      float64 `yaml:"thrive_win_rate"` // rolling win rate for THRIVING
	ThresholdStep      float64 `yaml:"threshold_step"`  // edge threshold increment, pct points
	MaxKellyMultiplier float64 `yaml:"max_kelly_multiplier"`
	HistorySize        int     `yaml:"history_size"`
}

// ResolverConfig controls the periodic settlement scan.
type ResolverConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// StorageConfig controls where trades are persisted.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite file path, or ":memory:"
}

// TelegramConfig enables the alert sink when token and chat id are set.
type TelegramConfig struct {
	Token           string `yaml:"token"`   // TELEGRAM_BOT_TOKEN overrides
	ChatID          string `yaml:"chat_id"` // TELEGRAM_CHAT_ID overrides
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// LogConfig controls logging format, level, and optional rotating file.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // rotating log file; empty = stdout only
}

// Load reads the YAML config and the .env file if present. Env values
// override the YAML for the keys that map to them.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the bot must not start with.
func (c *Config) Validate() error {
	if c.Mode != "paper" && c.Mode != "live" {
		return fmt.Errorf("config: mode must be \"paper\" or \"live\", got %q", c.Mode)
	}
	if c.Mode == "live" && c.Venue.APIKey == "" {
		return fmt.Errorf("config: live mode requires venue.api_key (or VENUE_API_KEY)")
	}
	if c.Trading.InitialCapital <= 0 {
		return fmt.Errorf("config: trading.initial_capital must be positive, got %v", c.Trading.InitialCapital)
	}
	if c.Trading.MaxBetPct <= 0 || c.Trading.MaxBetPct > 1 {
		return fmt.Errorf("config: trading.max_bet_pct must be in (0, 1], got %v", c.Trading.MaxBetPct)
	}
	if c.Trading.KellyFraction <= 0 || c.Trading.KellyFraction > 1 {
		return fmt.Errorf("config: trading.kelly_fraction must be in (0, 1], got %v", c.Trading.KellyFraction)
	}
	if c.Trading.ImpliedScale <= 0 {
		return fmt.Errorf("config: trading.implied_scale must be positive, got %v", c.Trading.ImpliedScale)
	}
	return nil
}

// MaxFeedLatency returns the stale-tick ceiling as a duration.
func (c *Config) MaxFeedLatency() time.Duration {
	return time.Duration(c.Feed.MaxLatencyMS) * time.Millisecond
}

// CatalogRefresh returns the market cache TTL.
func (c *Config) CatalogRefresh() time.Duration {
	return time.Duration(c.Catalog.RefreshSeconds) * time.Second
}

// ResolveInterval returns the settlement scan period.
func (c *Config) ResolveInterval() time.Duration {
	return time.Duration(c.Resolver.IntervalSeconds) * time.Second
}

// AlertInterval returns the per-category notification rate limit.
func (c *Config) AlertInterval() time.Duration {
	return time.Duration(c.Telegram.IntervalSeconds) * time.Second
}

// applyEnvOverrides replaces values with environment variables when present.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VENUE_API_KEY"); v != "" {
		cfg.Venue.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults fills in every unset option with its documented default.
func setDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = "paper"
	}
	if cfg.Feed.URL == "" {
		cfg.Feed.URL = "wss://stream.binance.com:9443/ws"
	}
	if cfg.Feed.Symbol == "" {
		cfg.Feed.Symbol = "btcusdt"
	}
	if cfg.Feed.MaxLatencyMS <= 0 {
		cfg.Feed.MaxLatencyMS = 100
	}
	if cfg.Feed.BufferSize <= 0 {
		cfg.Feed.BufferSize = 64
	}
	if cfg.Catalog.RefreshSeconds <= 0 {
		cfg.Catalog.RefreshSeconds = 30
	}
	if cfg.Venue.BaseURL == "" {
		cfg.Venue.BaseURL = "https://clob.polymarket.com"
	}
	if cfg.Trading.InitialCapital == 0 {
		cfg.Trading.InitialCapital = 100
	}
	if cfg.Trading.MaxBetPct == 0 {
		cfg.Trading.MaxBetPct = 0.20
	}
	if cfg.Trading.MaxConcurrentPositions <= 0 {
		cfg.Trading.MaxConcurrentPositions = 10
	}
	if cfg.Trading.MinEdgePct == 0 {
		cfg.Trading.MinEdgePct = 2.0
	}
	if cfg.Trading.ImpliedScale == 0 {
		cfg.Trading.ImpliedScale = 100
	}
	if cfg.Trading.KellyFraction == 0 {
		cfg.Trading.KellyFraction = 0.5
	}
	if cfg.Survival.LossStreak <= 0 {
		cfg.Survival.LossStreak = 4
	}
	if cfg.Survival.WinStreak <= 0 {
		cfg.Survival.WinStreak = 3
	}
	if cfg.Survival.ThriveWinRate == 0 {
		cfg.Survival.ThriveWinRate = 0.65
	}
	if cfg.Survival.ThresholdStep == 0 {
		cfg.Survival.ThresholdStep = 1.0
	}
	if cfg.Survival.MaxKellyMultiplier == 0 {
		cfg.Survival.MaxKellyMultiplier = 1.2
	}
	if cfg.Survival.HistorySize <= 0 {
		cfg.Survival.HistorySize = 200
	}
	if cfg.Resolver.IntervalSeconds <= 0 {
		cfg.Resolver.IntervalSeconds = 30
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "quickedge.db"
	}
	if cfg.Telegram.IntervalSeconds <= 0 {
		cfg.Telegram.IntervalSeconds = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
