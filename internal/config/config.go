// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is populated once at
// startup and never mutated afterwards.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Owner     OwnerConfig     `mapstructure:"owner"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Economy   EconomyConfig   `mapstructure:"economy"`
	Casino    CasinoConfig    `mapstructure:"casino"`
	Bonus     BonusConfig     `mapstructure:"bonus"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// OwnerConfig identifies the bot owner, who bypasses all hierarchy checks.
type OwnerConfig struct {
	ID int64 `mapstructure:"id"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// EconomyConfig holds the tunable nation-game constants.
type EconomyConfig struct {
	TaxRateCap          float64       `mapstructure:"tax_rate_cap"`
	FuzzyMatchThreshold float64       `mapstructure:"fuzzy_match_threshold"`
	ReviewCooldownDays  int           `mapstructure:"review_cooldown_days"`
	CreationCooldown    time.Duration `mapstructure:"creation_cooldown"`
	CoronationBonus     int64         `mapstructure:"coronation_bonus"`
}

// CasinoConfig holds the slot machine generator parameters. The symbol
// table is derived from these four values: symbols later in the list pay
// more but appear less often.
type CasinoConfig struct {
	Symbols        []string `mapstructure:"symbols"`
	BaseMultiplier float64  `mapstructure:"base_multiplier"`
	MultiplierStep float64  `mapstructure:"multiplier_step"`
	BaseWeight     float64  `mapstructure:"base_weight"`
	WeightDivisor  float64  `mapstructure:"weight_divisor"`
	GridLuckMin    float64  `mapstructure:"grid_luck_min"`
	GridLuckMax    float64  `mapstructure:"grid_luck_max"`
	MaxBet         int64    `mapstructure:"max_bet"`
}

// BonusConfig holds the daily influence bonus schedule and ratio.
type BonusConfig struct {
	Hour   int   `mapstructure:"hour"`
	Minute int   `mapstructure:"minute"`
	Ratio  int64 `mapstructure:"ratio"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. BOT_TOKEN, OWNER_ID, DATABASE_HOST.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "nationbot")
	v.SetDefault("database.name", "nationbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Economy defaults
	v.SetDefault("economy.tax_rate_cap", 0.5)
	v.SetDefault("economy.fuzzy_match_threshold", 0.75)
	v.SetDefault("economy.review_cooldown_days", 7)
	v.SetDefault("economy.creation_cooldown", "168h")
	v.SetDefault("economy.coronation_bonus", 10)

	// Casino defaults
	v.SetDefault("casino.symbols", []string{"🍒", "🍋", "🦷", "⭐", "👼🏿"})
	v.SetDefault("casino.base_multiplier", 1.0)
	v.SetDefault("casino.multiplier_step", 0.5)
	v.SetDefault("casino.base_weight", 100.0)
	v.SetDefault("casino.weight_divisor", 1.6)
	v.SetDefault("casino.grid_luck_min", 0.8)
	v.SetDefault("casino.grid_luck_max", 1.2)
	v.SetDefault("casino.max_bet", 100000)

	// Daily bonus defaults: midnight local time
	v.SetDefault("bonus.hour", 0)
	v.SetDefault("bonus.minute", 0)
	v.SetDefault("bonus.ratio", 100)
}

// validate rejects configurations that would break economy invariants.
func (c *Config) validate() error {
	if c.Economy.TaxRateCap < 0 || c.Economy.TaxRateCap > 0.5 {
		return fmt.Errorf("economy.tax_rate_cap must be in [0, 0.5], got %v", c.Economy.TaxRateCap)
	}
	if len(c.Casino.Symbols) < 2 {
		return fmt.Errorf("casino.symbols needs at least 2 symbols, got %d", len(c.Casino.Symbols))
	}
	if c.Casino.WeightDivisor <= 1 {
		return fmt.Errorf("casino.weight_divisor must be > 1, got %v", c.Casino.WeightDivisor)
	}
	if c.Casino.GridLuckMin <= 0 || c.Casino.GridLuckMax < c.Casino.GridLuckMin {
		return fmt.Errorf("invalid grid luck range [%v, %v]", c.Casino.GridLuckMin, c.Casino.GridLuckMax)
	}
	if c.Bonus.Ratio <= 0 {
		return fmt.Errorf("bonus.ratio must be positive, got %d", c.Bonus.Ratio)
	}
	return nil
}

// IsOwner checks if a user ID is the designated owner identity.
func (c *Config) IsOwner(userID int64) bool {
	return c.Owner.ID != 0 && userID == c.Owner.ID
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
