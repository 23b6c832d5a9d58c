// Package config provides configuration management for the Oddsmith application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	ModelAPI   ModelAPIConfig   `mapstructure:"model_api" validate:"required"`
	MarketFeed MarketFeedConfig `mapstructure:"market_feed" validate:"required"`
	Staking    StakingConfig    `mapstructure:"staking" validate:"required"`
	Risk       RiskConfig       `mapstructure:"risk" validate:"required"`
	SafeMode   SafeModeConfig   `mapstructure:"safe_mode" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ModelAPIConfig represents the external win-probability model endpoint
type ModelAPIConfig struct {
	URL              string  `mapstructure:"url" validate:"required,url"`
	APIKey           string  `mapstructure:"api_key"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts    int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RateLimitPerSec  float64 `mapstructure:"rate_limit_per_sec" validate:"required,gt=0"`
	CacheTTLSeconds  int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxEntries  int     `mapstructure:"cache_max_entries" validate:"required,gt=0"`
	MinCalibrationN  int     `mapstructure:"min_calibration_samples" validate:"required,gte=1"`
	CalibrationBins  int     `mapstructure:"calibration_bins" validate:"required,gt=0"`
}

// MarketFeedConfig represents the market quote stream configuration
type MarketFeedConfig struct {
	StreamURL         string `mapstructure:"stream_url" validate:"required"`
	AuthToken         string `mapstructure:"auth_token"`
	ReconnectSeconds  int    `mapstructure:"reconnect_seconds" validate:"required,gt=0"`
	ReadTimeoutSecond int    `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
}

// StakingConfig represents edge and stake sizing configuration
type StakingConfig struct {
	EdgeThreshold      float64 `mapstructure:"edge_threshold" validate:"required,gte=0,lte=1"`
	KellyFraction      float64 `mapstructure:"kelly_fraction" validate:"required,gt=0,lte=1"`
	MaxStakePct        float64 `mapstructure:"max_stake_pct" validate:"required,gt=0,lte=1"`
	PortfolioBudgetPct float64 `mapstructure:"portfolio_budget_pct" validate:"required,gt=0,lte=1"`
	MinStake           float64 `mapstructure:"min_stake" validate:"gte=0"`
}

// RiskConfig represents bankroll and stop-loss configuration
type RiskConfig struct {
	StartingBankroll float64 `mapstructure:"starting_bankroll" validate:"required,gt=0"`
	DailyStopLossPct float64 `mapstructure:"daily_stop_loss_pct" validate:"required,gt=0,lt=1"`
	MaxDrawdownPct   float64 `mapstructure:"max_drawdown_pct" validate:"required,gt=0,lt=1"`
	CooldownHours    int     `mapstructure:"cooldown_hours" validate:"required,gt=0"`
	MaxBetsPerDay    int     `mapstructure:"max_bets_per_day" validate:"required,gt=0"`
	MaxLossStreak    int     `mapstructure:"max_loss_streak" validate:"required,gt=0"`
}

// SafeModeConfig represents safe-mode diagnostic trigger thresholds
type SafeModeConfig struct {
	LossStreakLength     int     `mapstructure:"loss_streak_length" validate:"required,gt=0"`
	ErrorRateThreshold   float64 `mapstructure:"error_rate_threshold" validate:"required,gt=0,lt=1"`
	MissingDataThreshold float64 `mapstructure:"missing_data_threshold" validate:"required,gt=0,lt=1"`
	DiagnosticSchedule   string  `mapstructure:"diagnostic_schedule" validate:"required"`
	CooldownHours        int     `mapstructure:"cooldown_hours" validate:"required,gt=0"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	StartDate       string  `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string  `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	InitialBankroll float64 `mapstructure:"initial_bankroll" validate:"required,gt=0"`
	Folds           int     `mapstructure:"folds" validate:"required,gt=0"`
	TrainWindowDays int     `mapstructure:"train_window_days" validate:"required,gt=0"`
	CommissionRate  float64 `mapstructure:"commission_rate" validate:"gte=0,lte=0.1"`
	OutputPath      string  `mapstructure:"output_path" validate:"required"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// CooldownDuration returns the risk cooldown as a time.Duration
func (r RiskConfig) CooldownDuration() time.Duration {
	return time.Duration(r.CooldownHours) * time.Hour
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
