package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstate/internal/app"
	"github.com/vladislavdragonenkov/cartstate/internal/version"
)

const (
	envGRPCAddr            = "CARTSTATE_GRPC_ADDR"
	envMetricsAddr         = "CARTSTATE_METRICS_ADDR"
	envStorageDriver       = "CARTSTATE_STORAGE_DRIVER"
	envSQLitePath          = "CARTSTATE_SQLITE_PATH"
	envPostgresDSN         = "CARTSTATE_POSTGRES_DSN"
	envPostgresAutoMigrate = "CARTSTATE_POSTGRES_AUTO_MIGRATE"
	envRedisAddr           = "CARTSTATE_REDIS_ADDR"
	envRedisDB             = "CARTSTATE_REDIS_DB"
	envCatalogURL          = "CARTSTATE_CATALOG_URL"
	envCatalogTimeout      = "CARTSTATE_CATALOG_TIMEOUT"
	envKafkaBrokers        = "CARTSTATE_KAFKA_BROKERS"
	envKafkaTopic          = "CARTSTATE_KAFKA_TOPIC"
	envScopeIdleTTL        = "CARTSTATE_SCOPE_IDLE_TTL"
	envWriteMaxAttempts    = "CARTSTATE_WRITE_MAX_ATTEMPTS"
	envWriteRetryDelay     = "CARTSTATE_WRITE_RETRY_DELAY"
	envWriteTimeout        = "CARTSTATE_WRITE_TIMEOUT"
	envLogLevel            = "CARTSTATE_LOG_LEVEL"
)

type lookupFunc func(string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup lookupFunc) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	if raw, ok := lookupTrimmed(lookup, envLogLevel); ok {
		level, err := log.ParseLevel(raw)
		if err != nil {
			log.WithError(err).Warn("invalid log level, keeping info")
			return
		}
		log.SetLevel(level)
	}
}

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения не валят запуск: остаётся значение по умолчанию, а причина попадает в warnings.
func readConfigFromEnv(lookup lookupFunc) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	if v, ok := lookupTrimmed(lookup, envGRPCAddr); ok {
		cfg.GRPCAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, envSQLitePath); ok {
		cfg.SQLitePath = v
	}
	if v, ok := lookupTrimmed(lookup, envPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := lookupTrimmed(lookup, envPostgresAutoMigrate); ok {
		parsed, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envPostgresAutoMigrate, err))
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envRedisAddr); ok {
		cfg.RedisAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envRedisDB); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			warnings = append(warnings, fmt.Sprintf("%s: must be a non-negative integer, got %q", envRedisDB, v))
		} else {
			cfg.RedisDB = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envCatalogURL); ok {
		cfg.CatalogURL = v
	}
	if v, ok := lookupTrimmed(lookup, envCatalogTimeout); ok {
		if parsed, err := parsePositiveDuration(v); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envCatalogTimeout, err))
		} else {
			cfg.CatalogTimeout = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = v
	}
	if v, ok := lookupTrimmed(lookup, envKafkaTopic); ok {
		cfg.KafkaTopic = v
	}
	if v, ok := lookupTrimmed(lookup, envScopeIdleTTL); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 {
			warnings = append(warnings, fmt.Sprintf("%s: must be a duration >= 0, got %q", envScopeIdleTTL, v))
		} else {
			cfg.ScopeIdleTTL = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envWriteMaxAttempts); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			warnings = append(warnings, fmt.Sprintf("%s: must be a positive integer, got %q", envWriteMaxAttempts, v))
		} else {
			cfg.WriteMaxAttempts = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envWriteRetryDelay); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 {
			warnings = append(warnings, fmt.Sprintf("%s: must be a duration >= 0, got %q", envWriteRetryDelay, v))
		} else {
			cfg.WriteRetryDelay = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envWriteTimeout); ok {
		if parsed, err := parsePositiveDuration(v); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envWriteTimeout, err))
		} else {
			cfg.WriteTimeout = parsed
		}
	}

	return cfg, warnings
}

func lookupTrimmed(lookup lookupFunc, key string) (string, bool) {
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", raw)
	}
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("duration must be > 0, got %s", parsed)
	}
	return parsed, nil
}

func main() {
	setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(version.Fields()).WithFields(log.Fields{
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"catalog_url":    cfg.CatalogURL,
	}).Info("запускаем CartService")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("CartService остановлен")
}
