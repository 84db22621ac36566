// Package config loads skillgraph configuration from config files,
// SKILLGRAPH_ environment variables and bound command line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillgraph/pkg/db"
	"github.com/jingkaihe/skillgraph/pkg/skills"
)

// EnvPrefix is the prefix of environment variables read by viper
const EnvPrefix = "SKILLGRAPH"

// Config is the full skillgraph configuration
type Config struct {
	Profile  string         `mapstructure:"profile"`
	Skills   skills.Config  `mapstructure:"skills"`
	Assembly AssemblyConfig `mapstructure:"assembly"`
	DB       DBConfig       `mapstructure:"db"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Serve    ServeConfig    `mapstructure:"serve"`
}

// AssemblyConfig tunes workflow assembly
type AssemblyConfig struct {
	Alternatives int  `mapstructure:"alternatives"`
	NoGraph      bool `mapstructure:"no_graph"`
	NoFeedback   bool `mapstructure:"no_feedback"`
}

// DBConfig locates the SQLite database
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig controls the result cache
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// LogConfig controls logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig controls OpenTelemetry tracing
type TracingConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Sampler string  `mapstructure:"sampler"`
	Ratio   float64 `mapstructure:"ratio"`
}

// ServeConfig holds the HTTP API listen address
type ServeConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Init sets up env handling, config file locations and defaults on v and
// reads the config file if one exists
func Init(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.skillgraph")
	v.AddConfigPath(".")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}
	return nil
}

// SetDefaults registers default values for every key
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("profile", "")
	v.SetDefault("skills.dirs", []string{"./.skillgraph/skills", filepath.Join(home, ".skillgraph", "skills")})
	v.SetDefault("skills.plugin_dirs", []string{"./.skillgraph/plugins", filepath.Join(home, ".skillgraph", "plugins")})
	v.SetDefault("skills.allowed", []string{})
	v.SetDefault("skills.concurrency", 8)
	v.SetDefault("assembly.alternatives", 3)
	v.SetDefault("assembly.no_graph", false)
	v.SetDefault("assembly.no_feedback", false)
	if dbPath, err := db.DefaultDBPath(); err == nil {
		v.SetDefault("db.path", dbPath)
	}
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_age", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)
	v.SetDefault("serve.host", "localhost")
	v.SetDefault("serve.port", 8080)
}

// Load unmarshals v into a Config, applies the active profile and validates the result
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if profile := activeProfile(cfg.Profile); profile != "" {
		settings := v.GetStringMap("profiles." + profile)
		if len(settings) == 0 {
			return cfg, errors.Errorf("profile '%s' not found", profile)
		}
		if err := applyProfile(&cfg, settings); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func activeProfile(profile string) string {
	if profile == "default" {
		return ""
	}
	return profile
}

// applyProfile merges profile settings on top of the loaded config
func applyProfile(cfg *Config, settings map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       false,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create profile decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to apply profile configuration")
	}
	return nil
}

// Validate checks value ranges
func (c Config) Validate() error {
	if c.DB.Path == "" {
		return errors.New("db.path cannot be empty")
	}
	if c.Skills.Concurrency < 0 {
		return errors.Errorf("skills.concurrency cannot be negative: %d", c.Skills.Concurrency)
	}
	if c.Cache.MaxAge < 0 {
		return errors.Errorf("cache.max_age cannot be negative: %s", c.Cache.MaxAge)
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return errors.Errorf("serve.port must be between 1 and 65535, got %d", c.Serve.Port)
	}
	switch c.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		return errors.Errorf("invalid tracing.sampler: %s, must be one of: always, never, ratio", c.Tracing.Sampler)
	}
	return nil
}
