package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"perpscanner/internal/apperr"
	"perpscanner/pkg/bybit"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	MainnetBaseURL = "https://api.bybit.com"
	TestnetBaseURL = "https://api-testnet.bybit.com"
)

type Config struct {
	Bybit    BybitConfig    `mapstructure:"bybit"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Status   StatusConfig   `mapstructure:"status"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type BybitConfig struct {
	REST     RESTConfig `mapstructure:"rest"`
	Category string     `mapstructure:"category"`
	Testnet  bool       `mapstructure:"testnet"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BaseURL picks the testnet host unless an explicit base URL overrides it.
func (c BybitConfig) BaseURL() string {
	if c.Testnet && (c.REST.BaseURL == "" || c.REST.BaseURL == MainnetBaseURL) {
		return TestnetBaseURL
	}
	if c.REST.BaseURL == "" {
		return MainnetBaseURL
	}
	return c.REST.BaseURL
}

type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	ChatID      int64  `mapstructure:"chat_id"` // broadcast destination, 0 disables it
	PollTimeout int    `mapstructure:"poll_timeout"`
}

// ScannerConfig carries the detection thresholds and pacing knobs.
type ScannerConfig struct {
	ScanIntervalSeconds      int     `mapstructure:"scan_interval_seconds"`
	VolumeSpikeThreshold     float64 `mapstructure:"volume_spike_threshold"` // multiplier, 2.0 => +200%
	PricePumpThresholdPct    float64 `mapstructure:"price_pump_threshold_pct"`
	PriceDumpThresholdPct    float64 `mapstructure:"price_dump_threshold_pct"` // negative
	VolatilityThresholdPct   float64 `mapstructure:"volatility_threshold_pct"`
	BreakoutLookbackPeriods  int     `mapstructure:"breakout_lookback_periods"`
	MinVolume24h             float64 `mapstructure:"min_volume_24h"`
	MinPrice                 float64 `mapstructure:"min_price"`
	MaxPrice                 float64 `mapstructure:"max_price"`
	MaxSymbolsPerCycle       int     `mapstructure:"max_symbols_per_cycle"`
	InterMessageDelaySeconds float64 `mapstructure:"inter_message_delay_seconds"`

	CandleInterval string        `mapstructure:"candle_interval"`
	CandleLimit    int           `mapstructure:"candle_limit"`
	SymbolDelay    time.Duration `mapstructure:"symbol_delay"`
	ErrorBackoff   time.Duration `mapstructure:"error_backoff"`

	// PerpetualsOnly additionally drops tickers outside the refreshed
	// perpetual universe, e.g. dated futures. Off by default.
	PerpetualsOnly bool `mapstructure:"perpetuals_only"`
}

func (s ScannerConfig) ScanInterval() time.Duration {
	return time.Duration(s.ScanIntervalSeconds) * time.Second
}

func (s ScannerConfig) InterMessageDelay() time.Duration {
	return time.Duration(s.InterMessageDelaySeconds * float64(time.Second))
}

type StatusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// StorageConfig selects where watchlists are persisted. Disabled keeps them in memory only.
type StorageConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	Driver         string         `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLitePath     string         `mapstructure:"sqlite_path"`
	CreateDatabase bool           `mapstructure:"create_database"`
	Postgres       PostgresConfig `mapstructure:"postgres"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bybit.rest.base_url", MainnetBaseURL)
	v.SetDefault("bybit.rest.timeout", 10*time.Second)
	v.SetDefault("bybit.category", "linear")
	v.SetDefault("bybit.testnet", false)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.poll_timeout", 10)

	v.SetDefault("scanner.scan_interval_seconds", 60)
	v.SetDefault("scanner.volume_spike_threshold", 2.0)
	v.SetDefault("scanner.price_pump_threshold_pct", 5.0)
	v.SetDefault("scanner.price_dump_threshold_pct", -5.0)
	v.SetDefault("scanner.volatility_threshold_pct", 10.0)
	v.SetDefault("scanner.breakout_lookback_periods", 20)
	v.SetDefault("scanner.min_volume_24h", 1_000_000.0)
	v.SetDefault("scanner.min_price", 0.001)
	v.SetDefault("scanner.max_price", 100_000.0)
	v.SetDefault("scanner.max_symbols_per_cycle", 50)
	v.SetDefault("scanner.inter_message_delay_seconds", 1.0)
	v.SetDefault("scanner.candle_interval", "1")
	v.SetDefault("scanner.candle_limit", 60)
	v.SetDefault("scanner.symbol_delay", 100*time.Millisecond)
	v.SetDefault("scanner.error_backoff", 30*time.Second)
	v.SetDefault("scanner.perpetuals_only", false)

	v.SetDefault("status.enabled", true)
	v.SetDefault("status.port", 8080)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/watchlists.db")
	v.SetDefault("storage.create_database", false)
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "postgres")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.postgres.dbname", "perpscanner")
	v.SetDefault("storage.postgres.sslmode", "disable")
	v.SetDefault("storage.postgres.timezone", "UTC")
	v.SetDefault("storage.postgres.parameter_prefix", "/perpscanner/db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")
}

// legacyEnv keeps the flat variable names deployments already use.
var legacyEnv = map[string]string{
	"bybit.testnet":                       "BYBIT_TESTNET",
	"port":                                "PORT",
	"scanner.scan_interval_seconds":       "SCAN_INTERVAL_SECONDS",
	"scanner.volume_spike_threshold":      "VOLUME_SPIKE_THRESHOLD",
	"scanner.price_pump_threshold_pct":    "PRICE_PUMP_THRESHOLD",
	"scanner.price_dump_threshold_pct":    "PRICE_DUMP_THRESHOLD",
	"scanner.volatility_threshold_pct":    "VOLATILITY_THRESHOLD",
	"scanner.breakout_lookback_periods":   "BREAKOUT_LOOKBACK_PERIODS",
	"scanner.min_volume_24h":              "MIN_VOLUME_24H",
	"scanner.min_price":                   "MIN_PRICE",
	"scanner.max_price":                   "MAX_PRICE",
	"scanner.max_symbols_per_cycle":       "MAX_SYMBOLS_PER_CYCLE",
	"scanner.inter_message_delay_seconds": "INTER_MESSAGE_DELAY_SECONDS",
	"log.level":                           "LOG_LEVEL",
}

// Load reads configuration from the given YAML file (optional when path is empty),
// a .env file if present, and environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	// .env is optional; production sets real environment variables.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// Support environment variables with dot notation (e.g., TELEGRAM_BOT_TOKEN)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		nested := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, nested, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if v.IsSet("port") {
		cfg.Status.Port = v.GetInt("port")
	}

	return &cfg, nil
}

// Validate reports the first configuration problem as an *apperr.ConfigurationError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		return &apperr.ConfigurationError{Field: "telegram.bot_token", Reason: "required"}
	}

	s := c.Scanner
	switch {
	case s.ScanIntervalSeconds <= 0:
		return &apperr.ConfigurationError{Field: "scanner.scan_interval_seconds", Reason: "must be positive"}
	case s.VolumeSpikeThreshold <= 0:
		return &apperr.ConfigurationError{Field: "scanner.volume_spike_threshold", Reason: "must be positive"}
	case s.PriceDumpThresholdPct >= 0:
		return &apperr.ConfigurationError{Field: "scanner.price_dump_threshold_pct", Reason: "must be negative"}
	case s.PricePumpThresholdPct <= 0:
		return &apperr.ConfigurationError{Field: "scanner.price_pump_threshold_pct", Reason: "must be positive"}
	case s.BreakoutLookbackPeriods < 1:
		return &apperr.ConfigurationError{Field: "scanner.breakout_lookback_periods", Reason: "must be at least 1"}
	case s.MinPrice > s.MaxPrice:
		return &apperr.ConfigurationError{Field: "scanner.min_price", Reason: "greater than max_price"}
	case s.MaxSymbolsPerCycle < 1:
		return &apperr.ConfigurationError{Field: "scanner.max_symbols_per_cycle", Reason: "must be at least 1"}
	case s.InterMessageDelaySeconds < 0:
		return &apperr.ConfigurationError{Field: "scanner.inter_message_delay_seconds", Reason: "must not be negative"}
	case s.CandleLimit < 1:
		return &apperr.ConfigurationError{Field: "scanner.candle_limit", Reason: "must be at least 1"}
	}

	if !bybit.KlineInterval(s.CandleInterval).IsValid() {
		return &apperr.ConfigurationError{Field: "scanner.candle_interval", Reason: fmt.Sprintf("unknown interval %q", s.CandleInterval)}
	}

	if c.Storage.Enabled {
		switch c.Storage.Driver {
		case "sqlite", "postgres":
		default:
			return &apperr.ConfigurationError{Field: "storage.driver", Reason: fmt.Sprintf("unsupported driver %q", c.Storage.Driver)}
		}
	}

	return nil
}
