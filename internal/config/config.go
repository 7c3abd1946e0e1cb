// Package config defines all configuration for the ingestion pipeline.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via POLY_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	API        APIConfig        `mapstructure:"api"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	Schedulers SchedulersConfig `mapstructure:"schedulers"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"server"`
}

// RateLimitConfig sets the per-endpoint-class token-bucket budgets,
// expressed as requests allowed per RateLimitWindow.
type RateLimitConfig struct {
	PositionsPerWindow       float64       `mapstructure:"positions_per_window"`
	ClosedPositionsPerWindow float64       `mapstructure:"closed_positions_per_window"`
	TradesPerWindow          float64       `mapstructure:"trades_per_window"`
	Window                   time.Duration `mapstructure:"window"`
	MaxRetryAttempts         int           `mapstructure:"max_retry_attempts"`
	RetryMinWait             time.Duration `mapstructure:"retry_min_wait"`
	RetryMaxWait             time.Duration `mapstructure:"retry_max_wait"`
}

// HTTPConfig tunes the shared resty transport's connection pool and timeout.
type HTTPConfig struct {
	PoolConnections int           `mapstructure:"pool_connections"`
	PoolMaxSize     int           `mapstructure:"pool_max_size"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// APIConfig holds the upstream Polymarket API base URLs.
type APIConfig struct {
	DataAPIBaseURL     string `mapstructure:"data_api_base_url"`
	GammaAPIBaseURL    string `mapstructure:"gamma_api_base_url"`
	LeaderboardBaseURL string `mapstructure:"leaderboard_base_url"`
}

// DatabaseConfig configures the MySQL connection via GORM.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DiscoveryConfig tunes the wallet-discovery gates and worker pools.
type DiscoveryConfig struct {
	MinTradeCount       int      `mapstructure:"min_trade_count"`
	MinPositionCount    int      `mapstructure:"min_position_count"`
	MinCombinedPnl      string   `mapstructure:"min_combined_pnl"`
	ActivityWindowDays  int      `mapstructure:"activity_window_days"`
	LeaderboardPnlFloor string   `mapstructure:"leaderboard_pnl_floor"`
	LeaderboardPageSize int      `mapstructure:"leaderboard_page_size"`
	Categories          []string `mapstructure:"categories"`
	Blacklist           []string `mapstructure:"blacklist"`
}

// SchedulersConfig sets the tick period and worker-pool width for every
// scheduled job, plus the wallet PnL period set.
type SchedulersConfig struct {
	DiscoveryInterval     time.Duration `mapstructure:"discovery_interval"`
	EventsMarketsInterval time.Duration `mapstructure:"events_markets_interval"`
	PositionsInterval     time.Duration `mapstructure:"positions_interval"`
	TradeSyncInterval     time.Duration `mapstructure:"trade_sync_interval"`
	ClosedEnrichInterval  time.Duration `mapstructure:"closed_enrich_interval"`
	BatchSyncInterval     time.Duration `mapstructure:"batch_sync_interval"`
	WalletPnlInterval     time.Duration `mapstructure:"wallet_pnl_interval"`
	EventsStaleAfter      time.Duration `mapstructure:"events_stale_after"`
	EventWorkers          int           `mapstructure:"event_workers"`
	PositionWorkers       int           `mapstructure:"position_workers"`
	TradeSyncWorkers      int           `mapstructure:"trade_sync_workers"`
	ClosedEnrichWorkers   int           `mapstructure:"closed_enrich_workers"`
	WalletPnlWorkers      int           `mapstructure:"wallet_pnl_workers"`
	WalletPnlPeriods      []int         `mapstructure:"wallet_pnl_periods"`
}

// LoggingConfig selects the zerolog output format/level.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig controls the thin trigger-endpoint HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: POLY_DATABASE_DSN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("POLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if dsn := os.Getenv("POLY_DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.positions_per_window", 120)
	v.SetDefault("rate_limit.closed_positions_per_window", 120)
	v.SetDefault("rate_limit.trades_per_window", 160)
	v.SetDefault("rate_limit.window", 10*time.Second)
	v.SetDefault("rate_limit.max_retry_attempts", 5)
	v.SetDefault("rate_limit.retry_min_wait", 1*time.Second)
	v.SetDefault("rate_limit.retry_max_wait", 60*time.Second)
	v.SetDefault("http.pool_connections", 100)
	v.SetDefault("http.pool_max_size", 100)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("discovery.min_trade_count", 20)
	v.SetDefault("discovery.min_position_count", 10)
	v.SetDefault("discovery.min_combined_pnl", "10000")
	v.SetDefault("discovery.activity_window_days", 30)
	v.SetDefault("schedulers.wallet_pnl_periods", []int{30, 60, 90})
	v.SetDefault("schedulers.discovery_interval", 1*time.Hour)
	v.SetDefault("schedulers.events_markets_interval", 15*time.Minute)
	v.SetDefault("schedulers.positions_interval", 5*time.Minute)
	v.SetDefault("schedulers.trade_sync_interval", 5*time.Minute)
	v.SetDefault("schedulers.closed_enrich_interval", 10*time.Minute)
	v.SetDefault("schedulers.batch_sync_interval", 30*time.Minute)
	v.SetDefault("schedulers.wallet_pnl_interval", 1*time.Hour)
	v.SetDefault("schedulers.events_stale_after", 6*time.Hour)
	v.SetDefault("schedulers.event_workers", 30)
	v.SetDefault("schedulers.position_workers", 30)
	v.SetDefault("schedulers.trade_sync_workers", 30)
	v.SetDefault("schedulers.closed_enrich_workers", 30)
	v.SetDefault("schedulers.wallet_pnl_workers", 50)
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required (set POLY_DATABASE_DSN)")
	}
	if c.API.DataAPIBaseURL == "" {
		return fmt.Errorf("api.data_api_base_url is required")
	}
	if c.API.GammaAPIBaseURL == "" {
		return fmt.Errorf("api.gamma_api_base_url is required")
	}
	if c.RateLimit.PositionsPerWindow <= 0 || c.RateLimit.ClosedPositionsPerWindow <= 0 || c.RateLimit.TradesPerWindow <= 0 {
		return fmt.Errorf("rate_limit.*_per_window must all be > 0")
	}
	if c.Schedulers.PositionWorkers <= 0 {
		return fmt.Errorf("schedulers.position_workers must be > 0")
	}
	if c.Schedulers.TradeSyncWorkers <= 0 {
		return fmt.Errorf("schedulers.trade_sync_workers must be > 0")
	}
	if c.Schedulers.WalletPnlWorkers <= 0 {
		return fmt.Errorf("schedulers.wallet_pnl_workers must be > 0")
	}
	if len(c.Schedulers.WalletPnlPeriods) == 0 {
		return fmt.Errorf("schedulers.wallet_pnl_periods must not be empty")
	}
	return nil
}
