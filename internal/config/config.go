// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Values are resolved by
// viper with the precedence: flags > environment (FLOWMEND_*) > config file
// > defaults.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Fixer    FixerConfig    `mapstructure:"fixer" yaml:"fixer"`
	Learning LearningConfig `mapstructure:"learning" yaml:"learning"`
	GitHub   GitHubConfig   `mapstructure:"github" yaml:"github"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// LoggerConfig configures the global zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for console log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// FixerConfig controls the multi-pass fix engine.
type FixerConfig struct {
	// MinConfidence is the lowest tier that will still be attempted
	// (very_high, high, medium, low, very_low).
	MinConfidence string `mapstructure:"min_confidence" yaml:"min_confidence"`
	// MaxPasses is the fixed-point iteration ceiling.
	MaxPasses int `mapstructure:"max_passes" yaml:"max_passes"`
	// ApplyFixes toggles between rewrite and analyze-only behavior.
	ApplyFixes bool `mapstructure:"apply_fixes" yaml:"apply_fixes"`
	// CreateBackups writes a .bak copy of the original file before a
	// rewrite.
	CreateBackups bool `mapstructure:"create_backups" yaml:"create_backups"`
	// MaxResidualErrors is the per-attempt acceptance ceiling on total
	// remaining validation errors. Fixes land incrementally, so some
	// structural errors are expected to persist mid-sequence.
	MaxResidualErrors int `mapstructure:"max_residual_errors" yaml:"max_residual_errors"`
}

// LearningConfig controls the learned-pattern feedback loop.
type LearningConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// DataDir holds learned_patterns.json and the run-history log.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// PromoteMinFrequency and PromoteMinConfidence gate which learned
	// patterns are replayed as substitution rules.
	PromoteMinFrequency  int     `mapstructure:"promote_min_frequency" yaml:"promote_min_frequency"`
	PromoteMinConfidence float64 `mapstructure:"promote_min_confidence" yaml:"promote_min_confidence"`
}

// GitHubConfig configures the GitHub API collaborator. Token and repository
// fall back to the conventional Actions environment variables.
type GitHubConfig struct {
	Token      string  `mapstructure:"token" yaml:"token"`
	Repository string  `mapstructure:"repository" yaml:"repository"`
	BaseBranch string  `mapstructure:"base_branch" yaml:"base_branch"`
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst  int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// global stores the active configuration for access from command handlers.
var global atomic.Pointer[Config]

// Get returns the process-wide configuration, or a default one when Load has
// not run yet (tests, early init failures).
func Get() *Config {
	if c := global.Load(); c != nil {
		return c
	}
	c := Default()
	global.Store(c)
	return c
}

// Set replaces the process-wide configuration.
func Set(c *Config) { global.Store(c) }

// Default returns the built-in configuration used before any file or
// environment overrides apply.
func Default() *Config {
	dataDir := "learning_data"
	if home, err := homedir.Dir(); err == nil {
		dataDir = filepath.Join(home, ".flowmend")
	}
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "flowmend",
			MaxSize:     50,
			MaxBackups:  3,
			MaxAge:      14,
			Colors: ColorConfig{
				Debug: "cyan", Info: "green", Warn: "yellow",
				Error: "red", DPanic: "magenta", Panic: "magenta", Fatal: "red",
			},
		},
		Fixer: FixerConfig{
			MinConfidence:     "high",
			MaxPasses:         5,
			ApplyFixes:        false,
			CreateBackups:     true,
			MaxResidualErrors: 20,
		},
		Learning: LearningConfig{
			Enabled:              true,
			DataDir:              dataDir,
			PromoteMinFrequency:  3,
			PromoteMinConfidence: 0.7,
		},
		GitHub: GitHubConfig{
			BaseBranch: "main",
			RateLimit:  5,
			RateBurst:  10,
		},
		Report: ReportConfig{
			Format: "markdown",
		},
	}
}

// SetDefaults registers the default values on a viper instance so partial
// config files unmarshal into a complete Config.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.service_name", d.Logger.ServiceName)
	v.SetDefault("logger.max_size", d.Logger.MaxSize)
	v.SetDefault("logger.max_backups", d.Logger.MaxBackups)
	v.SetDefault("logger.max_age", d.Logger.MaxAge)
	v.SetDefault("logger.colors.debug", d.Logger.Colors.Debug)
	v.SetDefault("logger.colors.info", d.Logger.Colors.Info)
	v.SetDefault("logger.colors.warn", d.Logger.Colors.Warn)
	v.SetDefault("logger.colors.error", d.Logger.Colors.Error)
	v.SetDefault("fixer.min_confidence", d.Fixer.MinConfidence)
	v.SetDefault("fixer.max_passes", d.Fixer.MaxPasses)
	v.SetDefault("fixer.create_backups", d.Fixer.CreateBackups)
	v.SetDefault("fixer.max_residual_errors", d.Fixer.MaxResidualErrors)
	v.SetDefault("learning.enabled", d.Learning.Enabled)
	v.SetDefault("learning.data_dir", d.Learning.DataDir)
	v.SetDefault("learning.promote_min_frequency", d.Learning.PromoteMinFrequency)
	v.SetDefault("learning.promote_min_confidence", d.Learning.PromoteMinConfidence)
	v.SetDefault("github.base_branch", d.GitHub.BaseBranch)
	v.SetDefault("github.rate_limit", d.GitHub.RateLimit)
	v.SetDefault("github.rate_burst", d.GitHub.RateBurst)
	v.SetDefault("report.format", d.Report.Format)
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	// Bind the conventional Actions environment variables for the GitHub
	// collaborator.
	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("github.repository", "GITHUB_REPOSITORY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.GitHub.Repository == "" {
		cfg.GitHub.Repository = os.Getenv("GITHUB_REPOSITORY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Fixer.MinConfidence {
	case "very_high", "high", "medium", "low", "very_low":
	default:
		return fmt.Errorf("fixer.min_confidence must be one of very_high, high, medium, low, very_low (got %q)", c.Fixer.MinConfidence)
	}
	if c.Fixer.MaxPasses <= 0 {
		return fmt.Errorf("fixer.max_passes must be a positive integer")
	}
	if c.Fixer.MaxResidualErrors <= 0 {
		return fmt.Errorf("fixer.max_residual_errors must be a positive integer")
	}
	if err := c.Learning.Validate(); err != nil {
		return fmt.Errorf("learning configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the learning configuration.
func (l *LearningConfig) Validate() error {
	if !l.Enabled {
		return nil
	}
	if l.DataDir == "" {
		return fmt.Errorf("data_dir is required when learning is enabled")
	}
	if l.PromoteMinConfidence < 0.0 || l.PromoteMinConfidence > 1.0 {
		return fmt.Errorf("promote_min_confidence must be between 0.0 and 1.0")
	}
	if l.PromoteMinFrequency < 1 {
		return fmt.Errorf("promote_min_frequency must be at least 1")
	}
	return nil
}
