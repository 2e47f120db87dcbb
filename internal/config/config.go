package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dotcommander/autonomy/internal/integrity"
	"github.com/dotcommander/autonomy/internal/itembank"
	"github.com/dotcommander/autonomy/internal/scoring"
	"github.com/dotcommander/autonomy/internal/trend"
)

// Config represents the autonomy configuration
type Config struct {
	DBPath      string          `mapstructure:"dbPath" json:"dbPath"`
	UserID      string          `mapstructure:"userId" json:"userId"`
	Format      string          `mapstructure:"format" json:"format"`
	Output      string          `mapstructure:"output" json:"output,omitempty"`
	Quiet       bool            `mapstructure:"quiet" json:"quiet"`
	Verbose     bool            `mapstructure:"verbose" json:"verbose"`
	LogMode     string          `mapstructure:"logMode" json:"logMode"`
	Concurrency int             `mapstructure:"concurrency" json:"concurrency"`
	Timezone    string          `mapstructure:"timezone" json:"timezone"`
	Scoring     ScoringConfig   `mapstructure:"scoring" json:"scoring"`
	Integrity   IntegrityConfig `mapstructure:"integrity" json:"integrity"`
	Trend       TrendConfig     `mapstructure:"trend" json:"trend"`
}

// ScoringConfig tunes construct scoring and the composite blend.
// Weights keys are construct names, case-insensitive; empty means defaults.
type ScoringConfig struct {
	Weights          map[string]float64 `mapstructure:"weights" json:"weights,omitempty"`
	MinItemsForCI    int                `mapstructure:"minItemsForCI" json:"minItemsForCI"`
	MinItemsForAlpha int                `mapstructure:"minItemsForAlpha" json:"minItemsForAlpha"`
}

// IntegrityConfig tunes the response integrity detectors
type IntegrityConfig struct {
	AgreeFloor        float64 `mapstructure:"agreeFloor" json:"agreeFloor"`
	StraightlineRun   int     `mapstructure:"straightlineRun" json:"straightlineRun"`
	MinSecondsPerItem float64 `mapstructure:"minSecondsPerItem" json:"minSecondsPerItem"`
}

// TrendConfig tunes trend classification
type TrendConfig struct {
	Delta float64 `mapstructure:"delta" json:"delta"`
}

// DefaultDBPath is ~/.autonomy/autonomy.db, or a relative path when the
// home directory cannot be resolved.
func DefaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return filepath.Join(".autonomy", "autonomy.db")
	}
	return filepath.Join(homeDir, ".autonomy", "autonomy.db")
}

// LoadConfig loads configuration from defaults, an optional
// .autonomyrc.{json,yaml,yml} in the working directory, and AUTONOMY_*
// environment variables. A non-empty dbPath overrides the loaded value.
func LoadConfig(dbPath string) (*Config, error) {
	// Set default values
	viper.SetDefault("dbPath", DefaultDBPath())
	viper.SetDefault("userId", "local")
	viper.SetDefault("format", "console")
	viper.SetDefault("quiet", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("logMode", "development")
	viper.SetDefault("concurrency", 4)
	viper.SetDefault("timezone", "Local")
	viper.SetDefault("scoring.minItemsForCI", scoring.DefaultOptions().MinItemsForCI)
	viper.SetDefault("scoring.minItemsForAlpha", scoring.DefaultOptions().MinItemsForAlpha)
	viper.SetDefault("integrity.agreeFloor", integrity.DefaultOptions().AgreeFloor)
	viper.SetDefault("integrity.straightlineRun", integrity.DefaultOptions().StraightlineRun)
	viper.SetDefault("integrity.minSecondsPerItem", integrity.DefaultOptions().MinSecondsPerItem.Seconds())
	viper.SetDefault("trend.delta", trend.DefaultDelta)

	// Config file locations
	configPaths := []string{".autonomyrc.json", ".autonomyrc.yaml", ".autonomyrc.yml"}
	for _, path := range configPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		break
	}

	// Environment variables
	viper.SetEnvPrefix("AUTONOMY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if dbPath != "" {
		config.DBPath = dbPath
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	switch config.Format {
	case "console", "compact", "json", "markdown":
	default:
		return fmt.Errorf("invalid format: %s. Must be 'console', 'compact', 'json', or 'markdown'", config.Format)
	}

	if config.Format == "markdown" && config.Output == "" {
		return fmt.Errorf("output file is required when format is 'markdown'")
	}

	if config.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	if strings.TrimSpace(config.UserID) == "" {
		return fmt.Errorf("userId must not be empty")
	}

	if _, err := config.Location(); err != nil {
		return err
	}

	if _, err := config.Weights(); err != nil {
		return err
	}

	if config.Integrity.AgreeFloor != 0 && (config.Integrity.AgreeFloor < 1 || config.Integrity.AgreeFloor > 7) {
		return fmt.Errorf("integrity.agreeFloor must be within 1-7")
	}

	if config.Trend.Delta < 0 {
		return fmt.Errorf("trend.delta must not be negative")
	}

	return nil
}

// Location resolves the timezone used for streak calendar days.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Weights converts the configured composite weights, falling back to the
// defaults when none are set.
func (c *Config) Weights() (scoring.Weights, error) {
	if len(c.Scoring.Weights) == 0 {
		return scoring.DefaultWeights(), nil
	}
	w := make(scoring.Weights, len(c.Scoring.Weights))
	for name, v := range c.Scoring.Weights {
		construct, ok := itembank.ParseConstruct(name)
		if !ok {
			return nil, fmt.Errorf("unknown construct in scoring.weights: %q", name)
		}
		w[construct] = v
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// ScorerOptions returns the scorer thresholds.
func (c *Config) ScorerOptions() scoring.Options {
	return scoring.Options{
		MinItemsForCI:    c.Scoring.MinItemsForCI,
		MinItemsForAlpha: c.Scoring.MinItemsForAlpha,
	}
}

// IntegrityOptions returns the detector thresholds.
func (c *Config) IntegrityOptions() integrity.Options {
	return integrity.Options{
		AgreeFloor:        c.Integrity.AgreeFloor,
		StraightlineRun:   c.Integrity.StraightlineRun,
		MinSecondsPerItem: time.Duration(c.Integrity.MinSecondsPerItem * float64(time.Second)),
	}
}

// SaveConfig saves the current configuration to a file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
