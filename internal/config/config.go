package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/cadence/internal/annotate"
	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/engine"
	"github.com/Veraticus/cadence/internal/lifecycle"
	"github.com/Veraticus/cadence/internal/service"
)

// Config is the typed view of all configuration keys.
type Config struct {
	Database  DatabaseConfig
	Logging   LoggingConfig
	Engine    EngineConfig
	Lifecycle LifecycleConfig
	Merchants MerchantsConfig
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// EngineConfig bounds a detection run.
type EngineConfig struct {
	TransactionLimit int
	Concurrency      int
	MaxAttempts      int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
}

// LifecycleConfig controls promotion and reminder defaults.
type LifecycleConfig struct {
	AutoPromote          bool
	PromoteMinConfidence float64
	DefaultReminderDays  int
}

// MerchantsConfig holds user-defined merchant display names.
type MerchantsConfig struct {
	Aliases []annotate.AliasRule
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("engine.transaction_limit", 500)
	v.SetDefault("engine.concurrency", 4)
	v.SetDefault("engine.retry.max_attempts", 3)
	v.SetDefault("engine.retry.initial_delay", 100*time.Millisecond)
	v.SetDefault("engine.retry.max_delay", 2*time.Second)
	v.SetDefault("lifecycle.auto_promote", false)
	v.SetDefault("lifecycle.promote_min_confidence", 0.8)
	v.SetDefault("lifecycle.default_reminder_days", 3)
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Engine: EngineConfig{
			TransactionLimit: v.GetInt("engine.transaction_limit"),
			Concurrency:      v.GetInt("engine.concurrency"),
			MaxAttempts:      v.GetInt("engine.retry.max_attempts"),
			InitialDelay:     v.GetDuration("engine.retry.initial_delay"),
			MaxDelay:         v.GetDuration("engine.retry.max_delay"),
		},
		Lifecycle: LifecycleConfig{
			AutoPromote:          v.GetBool("lifecycle.auto_promote"),
			PromoteMinConfidence: v.GetFloat64("lifecycle.promote_min_confidence"),
			DefaultReminderDays:  v.GetInt("lifecycle.default_reminder_days"),
		},
	}

	if err := v.UnmarshalKey("merchants.aliases", &cfg.Merchants.Aliases); err != nil {
		return nil, fmt.Errorf("%w: merchants.aliases: %w", common.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	if c.Engine.TransactionLimit < 0 {
		return fmt.Errorf("%w: engine.transaction_limit cannot be negative", common.ErrInvalidConfig)
	}
	if c.Engine.Concurrency < 1 {
		return fmt.Errorf("%w: engine.concurrency must be at least 1", common.ErrInvalidConfig)
	}
	if c.Engine.MaxAttempts < 1 {
		return fmt.Errorf("%w: engine.retry.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	if c.Lifecycle.PromoteMinConfidence < 0 || c.Lifecycle.PromoteMinConfidence > 1 {
		return fmt.Errorf("%w: lifecycle.promote_min_confidence must be between 0 and 1", common.ErrInvalidConfig)
	}
	if c.Lifecycle.DefaultReminderDays < 0 {
		return fmt.Errorf("%w: lifecycle.default_reminder_days cannot be negative", common.ErrInvalidConfig)
	}
	if _, err := annotate.NewAliases(c.Merchants.Aliases); err != nil {
		return fmt.Errorf("%w: merchants.aliases: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

// EngineOptions converts the engine keys for engine.NewWithConfig.
func (c *Config) EngineOptions() engine.Config {
	return engine.Config{
		TransactionLimit: c.Engine.TransactionLimit,
		Concurrency:      c.Engine.Concurrency,
		Retry: service.RetryOptions{
			MaxAttempts:  c.Engine.MaxAttempts,
			InitialDelay: c.Engine.InitialDelay,
			MaxDelay:     c.Engine.MaxDelay,
			Multiplier:   2.0,
		},
	}
}

// LifecycleOptions converts the lifecycle keys for lifecycle.NewManager.
func (c *Config) LifecycleOptions() lifecycle.Config {
	return lifecycle.Config{
		AutoPromote:          c.Lifecycle.AutoPromote,
		PromoteMinConfidence: c.Lifecycle.PromoteMinConfidence,
		DefaultReminderDays:  c.Lifecycle.DefaultReminderDays,
	}
}
