package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"habitcore/internal/blob"
	"habitcore/internal/core"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Storage.Driver", cfg.Storage.Driver, "sqlite"},
		{"Storage.Key", cfg.Storage.Key, "habit-tracker-data"},
		{"Storage.SQLitePath", cfg.Storage.SQLitePath, "habits.db"},
		{"Storage.Redis.Addr", cfg.Storage.Redis.Addr, "localhost:6379"},
		{"Blob.Driver", cfg.Blob.Driver, "fs"},
		{"Blob.S3.Region", cfg.Blob.S3.Region, "us-east-1"},
		{"Log.Level", cfg.Log.Level, "warn"},
		{"Log.Format", cfg.Log.Format, "console"},
		{"Metrics.Addr", cfg.Metrics.Addr, ""},
		{"HistoryDays", cfg.HistoryDays, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	resetViper(t)
	BindEnv()

	t.Setenv("HABITS_STORAGE_DRIVER", "redis")
	t.Setenv("HABITS_STORAGE_REDIS_ADDR", "cache:6380")
	t.Setenv("HABITS_STORAGE_REDIS_DB", "2")
	t.Setenv("HABITS_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("HABITS_HISTORY_DAYS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Driver != "redis" || cfg.Storage.Redis.Addr != "cache:6380" || cfg.Storage.Redis.DB != 2 {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if !cfg.Blob.S3.PathStyle || cfg.HistoryDays != 30 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), ".habits.yaml")
	content := "storage:\n  driver: blob\n  key: tracker\nblob:\n  driver: s3\n  s3:\n    bucket: habits\n    endpoint: http://minio:9000\nlog:\n  level: debug\n  format: json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts := cfg.StorageOptions()
	if opts.Driver != core.StorageBlob || opts.Key != "tracker" {
		t.Fatalf("unexpected storage options %+v", opts)
	}
	if opts.Blob.Driver != blob.DriverS3 || opts.Blob.S3.Bucket != "habits" || opts.Blob.S3.Endpoint != "http://minio:9000" || opts.Blob.S3.Region != "us-east-1" {
		t.Fatalf("unexpected blob options %+v", opts.Blob)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoad_RejectsNegativeHistory(t *testing.T) {
	resetViper(t)
	viper.Set("history_days", -1)
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative history_days")
	}
}

func TestLoad_RejectsOversizedHistory(t *testing.T) {
	resetViper(t)
	viper.Set("history_days", core.MaxHistoryDays+1)
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for history_days above %d", core.MaxHistoryDays)
	}
}
