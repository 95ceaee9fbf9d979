package app

import "time"

// Поддерживаемые KV-хранилища снапшотов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
)

// Config описывает настройки запуска cart-service.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	SQLitePath          string
	PostgresDSN         string
	PostgresAutoMigrate bool
	RedisAddr           string
	RedisDB             int

	// CatalogURL пустой: используется встроенный статический каталог.
	CatalogURL     string
	CatalogTimeout time.Duration

	// KafkaBrokers через запятую; пустая строка отключает публикацию событий.
	KafkaBrokers string
	KafkaTopic   string

	// ScopeIdleTTL: время простоя, после которого scope сессии закрывается; 0 отключает вытеснение.
	ScopeIdleTTL       time.Duration
	ScopeEvictInterval time.Duration

	WriteMaxAttempts int
	WriteRetryDelay  time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		SQLitePath:          "cartstate.db",
		PostgresAutoMigrate: true,
		RedisAddr:           "localhost:6379",
		CatalogTimeout:      5 * time.Second,
		KafkaTopic:          "cartstate.cart.events",
		ScopeIdleTTL:        30 * time.Minute,
		ScopeEvictInterval:  time.Minute,
		WriteMaxAttempts:    1,
		WriteRetryDelay:     50 * time.Millisecond,
		WriteTimeout:        5 * time.Second,
		ShutdownTimeout:     5 * time.Second,
	}
}
