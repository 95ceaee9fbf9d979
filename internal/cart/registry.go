package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

// Registry хранит открытые cart scope по идентификатору сессии.
type Registry struct {
	kv       domain.KVStore
	catalog  domain.Catalog
	options  []Option
	logger   *log.Entry
	recorder Recorder

	group singleflight.Group
	now   func() time.Time

	mu      sync.RWMutex
	scopes  map[string]*scopeEntry
	closing map[string]chan struct{}
	onClose []func(session string, store *Store)
	closed  bool
}

type scopeEntry struct {
	store    *Store
	lastSeen atomic.Int64
}

func (e *scopeEntry) touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}

// NewRegistry создаёт реестр. options применяются к каждому открываемому Store,
// ключ снапшота выводится из сессии.
func NewRegistry(kv domain.KVStore, catalog domain.Catalog, options ...Option) *Registry {
	opts := buildOptions(options)
	return &Registry{
		kv:       kv,
		catalog:  catalog,
		options:  append([]Option(nil), options...),
		logger:   opts.Logger,
		recorder: opts.Recorder,
		now:      time.Now,
		scopes:   make(map[string]*scopeEntry),
		closing:  make(map[string]chan struct{}),
	}
}

// OnClose регистрирует callback, вызываемый после закрытия scope (вытеснение или Close реестра).
func (r *Registry) OnClose(fn func(session string, store *Store)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.onClose = append(r.onClose, fn)
	r.mu.Unlock()
}

// Open возвращает scope сессии, при первом обращении гидрирует его.
// Конкурентные Open одной сессии выполняют гидрацию один раз.
func (r *Registry) Open(ctx context.Context, session string) (*Store, error) {
	session = strings.TrimSpace(session)

	if store, err := r.Lookup(session); err == nil {
		return store, nil
	}

	value, err, _ := r.group.Do(session, func() (any, error) {
		if store, err := r.Lookup(session); err == nil {
			return store, nil
		}

		r.mu.RLock()
		closed := r.closed
		evicting := r.closing[session]
		r.mu.RUnlock()
		if closed {
			return nil, domain.ErrStoreClosed
		}

		// Вытесняемый scope ещё дописывает снапшот: гидрация до конца записи прочитала бы старое значение.
		if evicting != nil {
			select {
			case <-evicting:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		opts := append(append([]Option(nil), r.options...), WithKey(SessionKey(session)))
		store, err := Open(ctx, r.kv, r.catalog, opts...)
		if err != nil {
			return nil, err
		}

		entry := &scopeEntry{store: store}
		entry.touch(r.now())

		r.mu.Lock()
		r.scopes[session] = entry
		r.mu.Unlock()

		r.recorder.RecordScopeOpened()
		r.logger.WithField("session", session).Info("cart scope opened")
		return store, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open cart scope %q: %w", session, err)
	}

	return value.(*Store), nil
}

// Lookup возвращает уже открытый scope или ErrNoActiveScope и отмечает обращение к нему.
func (r *Registry) Lookup(session string) (*Store, error) {
	if r == nil {
		return nil, domain.ErrNoActiveScope
	}

	r.mu.RLock()
	entry, ok := r.scopes[strings.TrimSpace(session)]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNoActiveScope
	}

	entry.touch(r.now())
	return entry.store, nil
}

// Sessions возвращает отсортированный список открытых сессий.
func (r *Registry) Sessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]string, 0, len(r.scopes))
	for session := range r.scopes {
		sessions = append(sessions, session)
	}
	sort.Strings(sessions)
	return sessions
}

// EvictIdle закрывает scope, к которым не обращались с момента idleBefore.
// Open вытесняемой сессии ждёт, пока её снапшот не будет дописан.
// Возвращает число закрытых scope; ошибки записи снапшотов объединяются.
func (r *Registry) EvictIdle(ctx context.Context, idleBefore time.Time) (int, error) {
	threshold := idleBefore.UnixNano()

	r.mu.Lock()
	idle := make(map[string]*scopeEntry)
	for session, entry := range r.scopes {
		if entry.lastSeen.Load() <= threshold {
			idle[session] = entry
			delete(r.scopes, session)
			r.closing[session] = make(chan struct{})
		}
	}
	r.mu.Unlock()

	if len(idle) == 0 {
		return 0, nil
	}
	return len(idle), r.closeScopes(ctx, idle, "cart scope evicted", r.releaseClosing)
}

func (r *Registry) releaseClosing(session string) {
	r.mu.Lock()
	if ch, ok := r.closing[session]; ok {
		close(ch)
		delete(r.closing, session)
	}
	r.mu.Unlock()
}

// Close закрывает все scope, дописывая их очереди записи.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	scopes := r.scopes
	r.scopes = make(map[string]*scopeEntry)
	r.mu.Unlock()

	return r.closeScopes(ctx, scopes, "cart scope closed", nil)
}

func (r *Registry) closeScopes(
	ctx context.Context,
	scopes map[string]*scopeEntry,
	message string,
	released func(session string),
) error {
	r.mu.RLock()
	hooks := append([]func(string, *Store){}, r.onClose...)
	r.mu.RUnlock()

	var errs []error
	for session, entry := range scopes {
		if err := entry.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close cart scope %q: %w", session, err))
		}
		if released != nil {
			released(session)
		}
		r.recorder.RecordScopeClosed()
		for _, hook := range hooks {
			hook(session, entry.store)
		}
		r.logger.WithField("session", session).Debug(message)
	}
	return errors.Join(errs...)
}
