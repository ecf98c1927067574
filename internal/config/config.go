// Package config provides configuration management for the optimizer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DataConfig holds market data configuration.
type DataConfig struct {
	BarDir          string   `mapstructure:"bar_dir"` // directory of per-symbol CSV files
	DBPath          string   `mapstructure:"db_path"`
	Symbols         []string `mapstructure:"symbols"`
	StartDate       string   `mapstructure:"start_date"` // YYYY-MM-DD
	EndDate         string   `mapstructure:"end_date"`
	MinUniverseSize int      `mapstructure:"min_universe_size"`
	CacheBars       bool     `mapstructure:"cache_bars"`
}

// BacktestConfig holds simulation configuration.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
}

// OptimizerConfig holds genetic algorithm configuration.
type OptimizerConfig struct {
	PopulationSize  int     `mapstructure:"population_size"`
	TotalIterations int     `mapstructure:"total_iterations"`
	EliteCount      int     `mapstructure:"elite_count"`
	TournamentSize  int     `mapstructure:"tournament_size"`
	CrossoverRate   float64 `mapstructure:"crossover_rate"`
	MutationRate    float64 `mapstructure:"mutation_rate"`
	Workers         int     `mapstructure:"workers"`
	Seed            int64   `mapstructure:"seed"` // 0 means derive from clock
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Console    bool   `mapstructure:"console"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/pattern-optimizer"
	}
	return filepath.Join(home, ".config", "pattern-optimizer")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		// Missing file is fine: run on defaults.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.bar_dir", "data/bars")
	v.SetDefault("data.db_path", filepath.Join(DefaultConfigDir(), "optimizer.db"))
	v.SetDefault("data.min_universe_size", 10)
	v.SetDefault("data.cache_bars", true)

	v.SetDefault("backtest.initial_capital", 100000.0)

	v.SetDefault("optimizer.population_size", 50)
	v.SetDefault("optimizer.total_iterations", 1000)
	v.SetDefault("optimizer.elite_count", 5)
	v.SetDefault("optimizer.tournament_size", 5)
	v.SetDefault("optimizer.crossover_rate", 0.7)
	v.SetDefault("optimizer.mutation_rate", 0.1)
	v.SetDefault("optimizer.workers", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.console", false)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPTIMIZER_BAR_DIR"); v != "" {
		cfg.Data.BarDir = v
	}
	if v := os.Getenv("OPTIMIZER_DB_PATH"); v != "" {
		cfg.Data.DBPath = v
	}
	if v := os.Getenv("OPTIMIZER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Data.MinUniverseSize < 1 {
		return fmt.Errorf("min_universe_size must be positive")
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive")
	}
	if c.Optimizer.PopulationSize < 2 {
		return fmt.Errorf("population_size must be at least 2")
	}
	if c.Optimizer.TotalIterations < c.Optimizer.PopulationSize {
		return fmt.Errorf("total_iterations must be at least population_size")
	}
	if c.Optimizer.CrossoverRate < 0 || c.Optimizer.CrossoverRate > 1 {
		return fmt.Errorf("crossover_rate must be between 0 and 1")
	}
	if c.Optimizer.MutationRate < 0 || c.Optimizer.MutationRate > 1 {
		return fmt.Errorf("mutation_rate must be between 0 and 1")
	}
	if _, err := c.DateRange(); err != nil {
		return err
	}
	return nil
}

// DateRange parses the configured start and end dates. A zero time is
// returned for an unset bound.
func (c *Config) DateRange() ([2]time.Time, error) {
	var out [2]time.Time
	var err error
	if c.Data.StartDate != "" {
		out[0], err = time.Parse("2006-01-02", c.Data.StartDate)
		if err != nil {
			return out, fmt.Errorf("invalid start_date %q: %w", c.Data.StartDate, err)
		}
	}
	if c.Data.EndDate != "" {
		out[1], err = time.Parse("2006-01-02", c.Data.EndDate)
		if err != nil {
			return out, fmt.Errorf("invalid end_date %q: %w", c.Data.EndDate, err)
		}
	}
	if !out[0].IsZero() && !out[1].IsZero() && out[1].Before(out[0]) {
		return out, fmt.Errorf("end_date must be after start_date")
	}
	return out, nil
}
