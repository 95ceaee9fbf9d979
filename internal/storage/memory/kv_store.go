package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

// KVStore: простая in-memory реализация domain.KVStore для локальной разработки и тестов.
type KVStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewKVStore возвращает пустое хранилище.
func NewKVStore() *KVStore {
	return &KVStore{values: make(map[string]string)}
}

// Get возвращает значение по ключу.
func (s *KVStore) Get(_ context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, domain.ErrKVKeyRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	return value, ok, nil
}

// Set перезаписывает значение.
func (s *KVStore) Set(_ context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrKVKeyRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// Ping всегда успешен.
func (s *KVStore) Ping(context.Context) error {
	return nil
}

// Len возвращает количество ключей (используется в тестах).
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

var (
	_ domain.KVStore = (*KVStore)(nil)
	_ domain.Pinger  = (*KVStore)(nil)
)
