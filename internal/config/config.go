package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"campaign-generator/internal/fallback"
	"campaign-generator/internal/platform"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr            string `mapstructure:"addr"`
		LogLevel        string `mapstructure:"log_level"`
		LogFormat       string `mapstructure:"log_format" validate:"omitempty,oneof=console json"`
		ShutdownSeconds int    `mapstructure:"shutdown_seconds" validate:"gte=0"`
	} `mapstructure:"server"`

	Generation struct {
		Platform   string                    `mapstructure:"platform"`
		Strategy   string                    `mapstructure:"strategy" validate:"oneof=skip truncate use_fallback"`
		MaxRows    int                       `mapstructure:"max_rows" validate:"gte=0"`
		RegexCache int                       `mapstructure:"regex_cache_size" validate:"gte=10"`
		Templates  int                       `mapstructure:"template_cache_size" validate:"gte=10"`
		Truncation fallback.TruncationConfig `mapstructure:"truncation"`
		FallbackAd *fallback.AdDefinition    `mapstructure:"fallback_ad"`
	} `mapstructure:"generation"`

	// Limits overrides entries of platform.DefaultLimits.
	Limits platform.LimitTable `mapstructure:"limits"`
	// LimitsFile is an optional YAML limit table merged over the defaults
	// before Limits is applied.
	LimitsFile string `mapstructure:"limits_file"`
}

// Load reads configs/application.yaml (optional) and APP_* env overrides.
// The returned viper instance can be watched for changes.
func Load() (Config, *viper.Viper) {
	v := viper.New()
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	cfg, err := Decode(v)
	if err != nil {
		panic(err)
	}
	return cfg, v
}

// Decode unmarshals and validates v.
func Decode(v *viper.Viper) (Config, error) {
	cfg := Config{}
	cfg.Generation.Truncation = fallback.DefaultTruncationConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	defaults(&cfg)
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Generation.Strategy == string(fallback.StrategyUseFallback) && cfg.Generation.FallbackAd == nil {
		return Config{}, fmt.Errorf("invalid config: %w", fallback.ErrMissingFallbackAd)
	}
	if err := cfg.Limits.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func defaults(c *Config) {
	if c.Server.Addr == "" { c.Server.Addr = ":8080" }
	if c.Server.ShutdownSeconds == 0 { c.Server.ShutdownSeconds = 10 }
	if c.Generation.Platform == "" { c.Generation.Platform = string(platform.Reddit) }
	if c.Generation.Strategy == "" { c.Generation.Strategy = string(fallback.StrategySkip) }
	if c.Generation.MaxRows == 0 { c.Generation.MaxRows = 50000 }
	if c.Generation.RegexCache == 0 { c.Generation.RegexCache = 1024 }
	if c.Generation.Templates == 0 { c.Generation.Templates = 1024 }
}

// LimitTable resolves the active table: defaults, then the limits file, then
// inline overrides.
func (c Config) LimitTable() (platform.LimitTable, error) {
	table := platform.DefaultLimits()
	if c.LimitsFile != "" {
		fromFile, err := platform.LoadYAML(c.LimitsFile)
		if err != nil {
			return nil, err
		}
		table = fromFile
	}
	return table.Merge(c.Limits.Normalize()), nil
}
