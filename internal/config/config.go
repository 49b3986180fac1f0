// Package config loads the supervisor's TOML configuration file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/svcwatch/internal/logger"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Listen     string        `toml:"listen" mapstructure:"listen"`
	BasePath   string        `toml:"base_path" mapstructure:"base_path"`
	FolderPath string        `toml:"folder_path" mapstructure:"folder_path"`
	StoreDSN   string        `toml:"store_dsn" mapstructure:"store_dsn"`
	HistoryDSN string        `toml:"history_dsn" mapstructure:"history_dsn"`
	Engine     EngineConfig  `toml:"engine" mapstructure:"engine"`
	Metrics    MetricsConfig `toml:"metrics" mapstructure:"metrics"`
	Log        logger.Config `toml:"log" mapstructure:"log"`
}

type EngineConfig struct {
	CheckInterval         time.Duration `toml:"check_interval" mapstructure:"check_interval"`
	ErrorBackoff          time.Duration `toml:"error_backoff" mapstructure:"error_backoff"`
	ResourceCooldown      time.Duration `toml:"resource_cooldown" mapstructure:"resource_cooldown"`
	QueueCooldown         time.Duration `toml:"queue_cooldown" mapstructure:"queue_cooldown"`
	DefaultQueueThreshold int64         `toml:"default_queue_threshold" mapstructure:"default_queue_threshold"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

// Load reads the TOML file at path, applying defaults for anything unset.
func Load(path string) (FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetDefault("listen", ":8080")
	v.SetDefault("base_path", "/api")
	v.SetDefault("store_dsn", "monitor_config.json")
	v.SetDefault("engine.check_interval", 30*time.Second)
	v.SetDefault("engine.error_backoff", 60*time.Second)
	v.SetDefault("engine.resource_cooldown", 120*time.Second)
	v.SetDefault("engine.queue_cooldown", 60*time.Second)
	v.SetDefault("engine.default_queue_threshold", int64(1000))
	v.SetDefault("metrics.listen", ":9090")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// Default returns the configuration used when no file is given.
func Default() FileConfig {
	return FileConfig{
		Listen:   ":8080",
		BasePath: "/api",
		StoreDSN: "monitor_config.json",
		Engine: EngineConfig{
			CheckInterval:         30 * time.Second,
			ErrorBackoff:          60 * time.Second,
			ResourceCooldown:      120 * time.Second,
			QueueCooldown:         60 * time.Second,
			DefaultQueueThreshold: 1000,
		},
		Metrics: MetricsConfig{Listen: ":9090"},
		Log:     logger.Config{Level: "info"},
	}
}
