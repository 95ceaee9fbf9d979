package main

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/cartstate/internal/app"
)

func mapLookup(values map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestReadConfigFromEnv_Defaults(t *testing.T) {
	cfg, warnings := readConfigFromEnv(mapLookup(nil))

	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if cfg != app.DefaultConfig() {
		t.Fatalf("expected default config, got %#v", cfg)
	}
}

func TestReadConfigFromEnv_ValidOverrides(t *testing.T) {
	cfg, warnings := readConfigFromEnv(mapLookup(map[string]string{
		envGRPCAddr:            "localhost:50051",
		envMetricsAddr:         "localhost:9090",
		envStorageDriver:       " ReDiS ",
		envRedisAddr:           "redis:6379",
		envRedisDB:             "2",
		envPostgresAutoMigrate: "off",
		envCatalogURL:          " http://catalog:8080 ",
		envCatalogTimeout:      "2s",
		envKafkaBrokers:        "kafka:9092",
		envWriteMaxAttempts:    "3",
		envWriteRetryDelay:     "0s",
		envWriteTimeout:        "1s",
		envScopeIdleTTL:        "0s",
	}))

	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if cfg.GRPCAddr != "localhost:50051" || cfg.MetricsAddr != "localhost:9090" {
		t.Fatalf("unexpected addrs: %s %s", cfg.GRPCAddr, cfg.MetricsAddr)
	}
	if cfg.StorageDriver != app.StorageDriverRedis {
		t.Fatalf("unexpected storage driver: %s", cfg.StorageDriver)
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 2 {
		t.Fatalf("unexpected redis config: %s/%d", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.PostgresAutoMigrate {
		t.Fatal("expected PostgresAutoMigrate=false")
	}
	if cfg.CatalogURL != "http://catalog:8080" {
		t.Fatalf("unexpected catalog url: %s", cfg.CatalogURL)
	}
	if cfg.CatalogTimeout != 2*time.Second {
		t.Fatalf("unexpected catalog timeout: %s", cfg.CatalogTimeout)
	}
	if cfg.KafkaBrokers != "kafka:9092" {
		t.Fatalf("unexpected kafka brokers: %s", cfg.KafkaBrokers)
	}
	if cfg.ScopeIdleTTL != 0 {
		t.Fatalf("expected eviction to be disabled, got %s", cfg.ScopeIdleTTL)
	}
	if cfg.WriteMaxAttempts != 3 || cfg.WriteRetryDelay != 0 || cfg.WriteTimeout != time.Second {
		t.Fatalf("unexpected write settings: %d %s %s", cfg.WriteMaxAttempts, cfg.WriteRetryDelay, cfg.WriteTimeout)
	}
}

func TestReadConfigFromEnv_InvalidValuesFallbackToDefaults(t *testing.T) {
	defaultCfg := app.DefaultConfig()

	cfg, warnings := readConfigFromEnv(mapLookup(map[string]string{
		envPostgresAutoMigrate: "not-bool",
		envRedisDB:             "-1",
		envCatalogTimeout:      "0s",
		envWriteMaxAttempts:    "0",
		envWriteRetryDelay:     "-5ms",
		envWriteTimeout:        "bad",
		envScopeIdleTTL:        "forever",
	}))

	if len(warnings) != 7 {
		t.Fatalf("expected 7 warnings, got %d: %v", len(warnings), warnings)
	}
	if cfg != defaultCfg {
		t.Fatalf("expected defaults to be kept, got %#v", cfg)
	}
}

func TestReadConfigFromEnv_BlankValuesIgnored(t *testing.T) {
	cfg, warnings := readConfigFromEnv(mapLookup(map[string]string{
		envGRPCAddr:      "   ",
		envStorageDriver: "",
	}))

	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if cfg != app.DefaultConfig() {
		t.Fatalf("expected blank values to be ignored, got %#v", cfg)
	}
}

func TestParseBool(t *testing.T) {
	for _, raw := range []string{" YES ", "1", "true", "On"} {
		value, err := parseBool(raw)
		if err != nil || !value {
			t.Fatalf("parseBool(%q) = %v, %v", raw, value, err)
		}
	}
	for _, raw := range []string{"no", "0", "FALSE", "off"} {
		value, err := parseBool(raw)
		if err != nil || value {
			t.Fatalf("parseBool(%q) = %v, %v", raw, value, err)
		}
	}
	if _, err := parseBool("maybe"); err == nil {
		t.Fatal("expected error for invalid bool")
	}
}
