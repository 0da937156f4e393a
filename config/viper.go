package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SHOPASSIST_API_URL.
const EnvPrefix = "SHOPASSIST"

// SetDefaults registers DefaultConfig values on v and enables environment
// overrides.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("api-url", d.APIURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("per-page", d.PerPage)
	v.SetDefault("window", d.Window)
	v.SetDefault("store", d.Store)
	v.SetDefault("store-file", d.StoreFile)
	v.SetDefault("redis-url", d.RedisURL)
	v.SetDefault("log-level", d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads the config file named by the "config" key, if any, and
// returns the merged, validated configuration.
func Load(v *viper.Viper) (*Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch re-reads the config file whenever it changes on disk and calls
// onChange with each new configuration that validates. Invalid edits are
// logged and ignored.
func Watch(v *viper.Viper, logger *slog.Logger, onChange func(*Config)) {
	if logger == nil {
		logger = slog.Default()
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		logger.Info("config file changed", "file", e.Name)

		cfg := DefaultConfig()
		if err := v.Unmarshal(cfg); err != nil {
			logger.Warn("failed to unmarshal config", "error", err)
			return
		}
		cfg.LogLevel = strings.ToLower(cfg.LogLevel)
		if err := cfg.Validate(); err != nil {
			logger.Warn("ignoring invalid config", "error", err)
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// ParseLevel maps a config log level onto slog.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
