// Package config loads runtime configuration for the habits CLI.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"habitcore/internal/blob"
	"habitcore/internal/core"
	"habitcore/internal/infra/persistence/redis"
	"habitcore/pkg/domain"
)

// EnvPrefix namespaces environment overrides, e.g. HABITS_STORAGE_DRIVER.
const EnvPrefix = "HABITS"

// RedisConfig configures the redis entry store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig selects where the tracker state lives.
type StorageConfig struct {
	Driver      string      `mapstructure:"driver"`
	Key         string      `mapstructure:"key"`
	SQLitePath  string      `mapstructure:"sqlite_path"`
	PostgresDSN string      `mapstructure:"postgres_dsn"`
	Redis       RedisConfig `mapstructure:"redis"`
}

// S3Config configures the S3 blob driver.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// BlobConfig configures the blob backend used when storage.driver is blob.
type BlobConfig struct {
	Driver string   `mapstructure:"driver"`
	FSRoot string   `mapstructure:"fs_root"`
	S3     S3Config `mapstructure:"s3"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config holds all runtime configuration.
// Values are populated from .habits.yaml, HABITS_* env vars, and CLI flags.
type Config struct {
	Storage     StorageConfig `mapstructure:"storage"`
	Blob        BlobConfig    `mapstructure:"blob"`
	Log         LogConfig     `mapstructure:"log"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
	HistoryDays int           `mapstructure:"history_days"`
}

// BindEnv makes viper consult HABITS_* variables, mapping nested keys with
// underscores (storage.sqlite_path -> HABITS_STORAGE_SQLITE_PATH).
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("storage.driver", string(core.StorageSQLite))
	viper.SetDefault("storage.key", domain.DefaultStateKey)
	viper.SetDefault("storage.sqlite_path", "habits.db")
	viper.SetDefault("storage.postgres_dsn", "")
	viper.SetDefault("storage.redis.addr", "localhost:6379")
	viper.SetDefault("storage.redis.password", "")
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("blob.driver", string(blob.DriverFilesystem))
	viper.SetDefault("blob.fs_root", "./blobdata")
	viper.SetDefault("blob.s3.bucket", "")
	viper.SetDefault("blob.s3.region", "us-east-1")
	viper.SetDefault("blob.s3.endpoint", "")
	viper.SetDefault("blob.s3.path_style", false)
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("metrics.addr", "")
	viper.SetDefault("history_days", 7)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.HistoryDays < 0 || cfg.HistoryDays > core.MaxHistoryDays {
		return Config{}, fmt.Errorf("history_days must be between 0 and %d, got %d", core.MaxHistoryDays, cfg.HistoryDays)
	}
	return cfg, nil
}

// StorageOptions converts the storage and blob sections for core.OpenEntryStore.
func (c Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.Storage.Driver),
		Key:         c.Storage.Key,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		Redis: redis.Options{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
		},
		Blob: blob.Options{
			Driver: blob.Driver(c.Blob.Driver),
			FSRoot: c.Blob.FSRoot,
			S3: blob.S3Config{
				Bucket:    c.Blob.S3.Bucket,
				Region:    c.Blob.S3.Region,
				Endpoint:  c.Blob.S3.Endpoint,
				PathStyle: c.Blob.S3.PathStyle,
			},
		},
	}
}
