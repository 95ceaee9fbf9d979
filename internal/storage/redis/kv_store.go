package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

const (
	defaultPingAttempts = 5
	defaultPingTimeout  = 3 * time.Second
	maxPingBackoff      = 30 * time.Second
)

// Config описывает подключение к Redis: одиночный узел или Sentinel.
type Config struct {
	Addr          string
	DB            int
	SentinelAddrs []string
	MasterName    string
	PingAttempts  int
}

// NewClient создаёт клиента и ждёт, пока Redis ответит на PING.
func NewClient(ctx context.Context, cfg Config, logger *log.Entry) (*goredis.Client, error) {
	if logger == nil {
		logger = log.WithField("component", "redis")
	}

	var client *goredis.Client
	if len(cfg.SentinelAddrs) > 0 {
		masterName := cfg.MasterName
		if masterName == "" {
			masterName = "mymaster"
		}
		client = goredis.NewFailoverClient(&goredis.FailoverOptions{
			MasterName:    masterName,
			SentinelAddrs: cfg.SentinelAddrs,
			DB:            cfg.DB,
		})
	} else {
		addr := strings.TrimSpace(cfg.Addr)
		if addr == "" {
			return nil, errors.New("redis addr is required")
		}
		client = goredis.NewClient(&goredis.Options{
			Addr: addr,
			DB:   cfg.DB,
		})
	}

	attempts := cfg.PingAttempts
	if attempts <= 0 {
		attempts = defaultPingAttempts
	}

	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.WithField("db", cfg.DB).Info("connected to redis")
			return client, nil
		}

		if i == attempts-1 {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis after %d attempts: %w", attempts, err)
		}

		backoff := time.Duration(1<<i) * time.Second
		if backoff > maxPingBackoff {
			backoff = maxPingBackoff
		}
		logger.WithError(err).WithField("retry_in", backoff).Warn("redis is not ready")

		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return client, nil
}

// KVStore хранит снапшоты корзин строковыми ключами Redis.
type KVStore struct {
	client goredis.UniversalClient
}

// NewKVStore создаёт Redis-реализацию domain.KVStore.
func NewKVStore(client goredis.UniversalClient) *KVStore {
	return &KVStore{client: client}
}

// Get читает значение; redis.Nil означает отсутствие ключа.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, domain.ErrKVKeyRequired
	}

	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set записывает значение без TTL.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrKVKeyRequired
	}

	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping проверяет подключение.
func (s *KVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var (
	_ domain.KVStore = (*KVStore)(nil)
	_ domain.Pinger  = (*KVStore)(nil)
)
