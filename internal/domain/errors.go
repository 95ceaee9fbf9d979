package domain

import "errors"

var (
	// ErrNoActiveScope возвращается, если операция с корзиной вызвана вне открытого cart scope.
	ErrNoActiveScope = errors.New("no active cart scope")
	// ErrHydrationFetch: каталог недоступен при холодном старте, корзина не создана.
	ErrHydrationFetch = errors.New("cart hydration: catalog fetch failed")
	// ErrSnapshotDecode: сохранённый снапшот не является JSON-массивом.
	ErrSnapshotDecode = errors.New("cart snapshot decode failed")
	// ErrPersistenceWrite: запись снапшота в KV-хранилище не удалась.
	ErrPersistenceWrite = errors.New("cart snapshot write failed")
	// ErrKVKeyRequired: пустой ключ в KV-хранилище.
	ErrKVKeyRequired = errors.New("kv key is required")
	// ErrStoreClosed: write queue уже остановлена.
	ErrStoreClosed = errors.New("cart store is closed")
	// ErrItemIDRequired: позиция без идентификатора.
	ErrItemIDRequired = errors.New("item id is required")
	// ErrCatalogUnavailable: каталог ответил ошибкой или не ответил вовсе.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// IsNoActiveScope проверяет, что ошибка означает отсутствие cart scope.
func IsNoActiveScope(err error) bool {
	return errors.Is(err, ErrNoActiveScope)
}
