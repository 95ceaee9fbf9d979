package domain

import (
	"context"
	"time"
)

// KVStore описывает локальное персистентное key-value хранилище.
type KVStore interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set перезаписывает значение по ключу.
	Set(ctx context.Context, key, value string) error
}

// Pinger реализуют хранилища, умеющие проверять доступность (для health checks).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Catalog описывает удалённый каталог товаров.
type Catalog interface {
	// ListProducts возвращает коллекцию "products" в порядке каталога.
	ListProducts(ctx context.Context) ([]Product, error)
}

// CartEventType задаёт тип события корзины для брокера и логов.
type CartEventType string

const (
	CartEventHydrated    CartEventType = "cart.hydrated"
	CartEventItemAdded   CartEventType = "cart.item_added"
	CartEventIncremented CartEventType = "cart.item_incremented"
	CartEventDecremented CartEventType = "cart.item_decremented"
)

// CartEvent фиксирует применённую мутацию корзины.
type CartEvent struct {
	ID        string        `json:"event_id"`
	Type      CartEventType `json:"event_type"`
	CartKey   string        `json:"cart_key"`
	ItemID    string        `json:"item_id,omitempty"`
	Quantity  int           `json:"quantity,omitempty"`
	Revision  uint64        `json:"revision"`
	Timestamp time.Time     `json:"timestamp"`
}

// EventPublisher публикует события корзины наружу.
type EventPublisher interface {
	PublishCartEvent(ctx context.Context, event CartEvent) error
}
