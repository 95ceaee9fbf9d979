package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

const opTimeout = 5 * time.Second

// KVStore хранит снапшоты корзин в таблице kv_entries.
type KVStore struct {
	store *Store
}

// NewKVStore создаёт PostgreSQL-реализацию domain.KVStore.
func NewKVStore(store *Store) *KVStore {
	return &KVStore{store: store}
}

// Get читает значение по ключу.
func (r *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, domain.ErrKVKeyRequired
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var value string
	err := r.store.DB().QueryRowContext(queryCtx, `
		SELECT value
		FROM kv_entries
		WHERE key = $1
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get kv entry: %w", err)
	}

	return value, true, nil
}

// Set записывает значение, перезаписывая существующее.
func (r *KVStore) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrKVKeyRequired
	}

	execCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.store.DB().ExecContext(execCtx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert kv entry: %w", err)
	}
	return nil
}

// Ping проверяет подключение.
func (r *KVStore) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

var (
	_ domain.KVStore = (*KVStore)(nil)
	_ domain.Pinger  = (*KVStore)(nil)
)
