package cart

import (
	"context"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

type scopeKey struct{}

// WithScope кладёт открытый Store в контекст.
func WithScope(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, scopeKey{}, store)
}

// FromContext достаёт Store из контекста или возвращает ErrNoActiveScope.
func FromContext(ctx context.Context) (*Store, error) {
	if ctx == nil {
		return nil, domain.ErrNoActiveScope
	}
	store, ok := ctx.Value(scopeKey{}).(*Store)
	if !ok || store == nil {
		return nil, domain.ErrNoActiveScope
	}
	return store, nil
}
