package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

func TestKVStore_PostgresSetGet(t *testing.T) {
	kv := NewKVStore(openPostgresStoreForIntegrationTest(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, ok, err := kv.Get(ctx, "@cartstate:products"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}

	if err := kv.Set(ctx, "@cartstate:products", `[{"id":"p1","quantity":1}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "@cartstate:products", `[{"id":"p1","quantity":2}]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, ok, err := kv.Get(ctx, "@cartstate:products")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != `[{"id":"p1","quantity":2}]` {
		t.Fatalf("unexpected value %q (ok=%v)", value, ok)
	}
	if err := kv.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestKVStore_EmptyKey(t *testing.T) {
	kv := NewKVStore(&Store{})

	if _, _, err := kv.Get(context.Background(), ""); !errors.Is(err, domain.ErrKVKeyRequired) {
		t.Fatalf("expected ErrKVKeyRequired, got %v", err)
	}
	if err := kv.Set(context.Background(), "  ", "x"); !errors.Is(err, domain.ErrKVKeyRequired) {
		t.Fatalf("expected ErrKVKeyRequired, got %v", err)
	}
}
