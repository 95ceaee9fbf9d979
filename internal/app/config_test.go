package app

import (
	"testing"
	"time"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GRPCAddr != ":50051" {
		t.Errorf("expected GRPCAddr :50051, got %s", cfg.GRPCAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.StorageDriver != StorageDriverMemory {
		t.Errorf("expected StorageDriver %s, got %s", StorageDriverMemory, cfg.StorageDriver)
	}
	if !cfg.PostgresAutoMigrate {
		t.Error("expected PostgresAutoMigrate to be true")
	}
	if cfg.CatalogURL != "" {
		t.Errorf("expected empty CatalogURL, got %s", cfg.CatalogURL)
	}
	if cfg.KafkaBrokers != "" {
		t.Errorf("expected kafka to be disabled by default, got %s", cfg.KafkaBrokers)
	}
	if cfg.ScopeIdleTTL != 30*time.Minute || cfg.ScopeEvictInterval != time.Minute {
		t.Errorf("unexpected scope eviction settings: ttl=%v interval=%v", cfg.ScopeIdleTTL, cfg.ScopeEvictInterval)
	}
	if cfg.WriteMaxAttempts != 1 {
		t.Errorf("expected a single write attempt by default, got %d", cfg.WriteMaxAttempts)
	}
	if cfg.WriteTimeout != 5*time.Second {
		t.Errorf("expected WriteTimeout 5s, got %v", cfg.WriteTimeout)
	}
	if cfg.ShutdownTimeout <= 0 {
		t.Error("expected ShutdownTimeout to be > 0")
	}
}
