package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"stage-scanner/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Data      DataConfig      `mapstructure:"data"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Scanner   ScannerConfig   `mapstructure:"scanner"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Charts    ChartsConfig    `mapstructure:"charts"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Output    OutputConfig    `mapstructure:"output"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DataConfig covers the market-data source.
type DataConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Lookback       string        `mapstructure:"lookback"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// GeminiConfig covers the vision-analysis service.
type GeminiConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	Temperature    float32       `mapstructure:"temperature"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ScannerConfig holds every deterministic threshold. All of these feed pure
// functions; nothing reads them as ambient state.
type ScannerConfig struct {
	SMAFastPeriod int `mapstructure:"sma_fast_period"`
	SMASlowPeriod int `mapstructure:"sma_slow_period"`

	CrossRecencyWeeks      int     `mapstructure:"cross_recency_weeks"`
	EarlySpreadMin         float64 `mapstructure:"early_spread_min"`
	EarlySpreadMax         float64 `mapstructure:"early_spread_max"`
	EarlyExtensionMin      float64 `mapstructure:"early_extension_min"`
	EarlyExtensionMax      float64 `mapstructure:"early_extension_max"`
	MidSpreadMin           float64 `mapstructure:"mid_spread_min"`
	MidSpreadMax           float64 `mapstructure:"mid_spread_max"`
	LateExtensionPct       float64 `mapstructure:"late_extension_pct"`
	LateSpreadPct          float64 `mapstructure:"late_spread_pct"`
	TransitionProximityPct float64 `mapstructure:"transition_proximity_pct"`
	BasingExtensionPct     float64 `mapstructure:"basing_extension_pct"`
	FlatSlopePct           float64 `mapstructure:"flat_slope_pct"`

	DarvasBoxWindow int `mapstructure:"darvas_box_window"`

	ATRWindow           int     `mapstructure:"atr_window"`
	ATRBaselineMultiple int     `mapstructure:"atr_baseline_multiple"`
	ATRCompressionRatio float64 `mapstructure:"atr_compression_ratio"`
	RangeCeilingPct     float64 `mapstructure:"range_ceiling_pct"`

	MinRiskReward        float64 `mapstructure:"min_risk_reward"`
	EarningsBlackoutDays int     `mapstructure:"earnings_blackout_days"`
	PullbackProximityPct float64 `mapstructure:"pullback_proximity_pct"`
}

// BatchConfig governs the analysis batch pacing and retries.
type BatchConfig struct {
	MinInterval      time.Duration `mapstructure:"min_interval"`
	RateLimitRetries int           `mapstructure:"rate_limit_retries"`
	RateLimitBase    time.Duration `mapstructure:"rate_limit_base"`
	ServiceRetries   int           `mapstructure:"service_retries"`
	ServiceBackoff   time.Duration `mapstructure:"service_backoff"`
}

// ChartsConfig sets chart artifact rendering.
type ChartsConfig struct {
	Dir    string `mapstructure:"dir"`
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// AlertingConfig defines notification routing.
type AlertingConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Discord DiscordConfig `mapstructure:"discord"`
}

// DiscordConfig 描述 Discord Webhook 告警参数。
type DiscordConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig governs the long-running scan cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AlignToStart bool          `mapstructure:"align_to_start"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// OutputConfig sets result file output.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STAGESCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stagescanner")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("data.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("data.lookback", "5y")
	v.SetDefault("data.request_timeout", "30s")
	v.SetDefault("data.user_agent", "Mozilla/5.0")

	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.request_timeout", "120s")

	v.SetDefault("scanner.sma_fast_period", 50)
	v.SetDefault("scanner.sma_slow_period", 150)
	v.SetDefault("scanner.cross_recency_weeks", 6)
	v.SetDefault("scanner.early_spread_min", 0.0)
	v.SetDefault("scanner.early_spread_max", 8.0)
	v.SetDefault("scanner.early_extension_min", 5.0)
	v.SetDefault("scanner.early_extension_max", 15.0)
	v.SetDefault("scanner.mid_spread_min", 8.0)
	v.SetDefault("scanner.mid_spread_max", 15.0)
	v.SetDefault("scanner.late_extension_pct", 15.0)
	v.SetDefault("scanner.late_spread_pct", 10.0)
	v.SetDefault("scanner.transition_proximity_pct", 5.0)
	v.SetDefault("scanner.basing_extension_pct", 5.0)
	v.SetDefault("scanner.flat_slope_pct", 0.5)
	v.SetDefault("scanner.darvas_box_window", 3)
	v.SetDefault("scanner.atr_window", 20)
	v.SetDefault("scanner.atr_baseline_multiple", 3)
	v.SetDefault("scanner.atr_compression_ratio", 0.5)
	v.SetDefault("scanner.range_ceiling_pct", 5.0)
	v.SetDefault("scanner.min_risk_reward", 3.0)
	v.SetDefault("scanner.earnings_blackout_days", 7)
	v.SetDefault("scanner.pullback_proximity_pct", 3.0)

	v.SetDefault("batch.min_interval", "5s")
	v.SetDefault("batch.rate_limit_retries", 5)
	v.SetDefault("batch.rate_limit_base", "2s")
	v.SetDefault("batch.service_retries", 2)
	v.SetDefault("batch.service_backoff", "3s")

	v.SetDefault("charts.dir", "charts")
	v.SetDefault("charts.width", 1280)
	v.SetDefault("charts.height", 720)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.discord.timeout", "30s")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("output.path", "results.json")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs sanity checks on the configuration. Invalid thresholds
// are fatal at startup, never per-item.
func (c *Config) Validate() error {
	s := c.Scanner
	if s.SMAFastPeriod <= 0 || s.SMASlowPeriod <= 0 {
		return fmt.Errorf("scanner SMA periods must be positive")
	}
	if s.SMAFastPeriod >= s.SMASlowPeriod {
		return fmt.Errorf("scanner.sma_fast_period must be below sma_slow_period")
	}
	if s.CrossRecencyWeeks <= 0 {
		return fmt.Errorf("scanner.cross_recency_weeks must be positive")
	}
	if s.EarlySpreadMin >= s.EarlySpreadMax || s.EarlyExtensionMin >= s.EarlyExtensionMax || s.MidSpreadMin >= s.MidSpreadMax {
		return fmt.Errorf("scanner stage ranges must have min < max")
	}
	if s.DarvasBoxWindow <= 0 {
		return fmt.Errorf("scanner.darvas_box_window must be positive")
	}
	if s.ATRWindow <= 0 || s.ATRBaselineMultiple <= 1 {
		return fmt.Errorf("scanner ATR windows must be positive (baseline multiple > 1)")
	}
	if s.ATRCompressionRatio <= 0 || s.ATRCompressionRatio > 1 {
		return fmt.Errorf("scanner.atr_compression_ratio must be in (0, 1]")
	}
	if s.MinRiskReward <= 0 {
		return fmt.Errorf("scanner.min_risk_reward must be positive")
	}
	if c.Batch.MinInterval < 0 {
		return fmt.Errorf("batch.min_interval cannot be negative")
	}
	if c.Batch.RateLimitRetries <= 0 || c.Batch.RateLimitBase <= 0 {
		return fmt.Errorf("batch rate-limit retry settings must be positive")
	}
	if c.Batch.ServiceRetries < 0 {
		return fmt.Errorf("batch.service_retries cannot be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Alerting.Enabled && c.Alerting.Discord.WebhookURL == "" {
		return fmt.Errorf("alerting.discord.webhook_url 必须配置")
	}
	return nil
}
