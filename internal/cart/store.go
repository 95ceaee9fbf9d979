package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

// DefaultKey: ключ снапшота корзины в KV-хранилище.
const DefaultKey = "@cartstate:products"

// SessionKey возвращает ключ снапшота для сессии; пустая сессия использует DefaultKey.
func SessionKey(session string) string {
	if session == "" {
		return DefaultKey
	}
	return DefaultKey + ":" + session
}

// Snapshot: зафиксированное значение состояния корзины.
// Revision растёт на каждой мутации и заменяет сравнение по ссылке.
type Snapshot struct {
	Items    []domain.CartItem
	Revision uint64
}

// Options задаёт параметры Store.
type Options struct {
	Key              string
	Logger           *log.Entry
	Publisher        domain.EventPublisher
	Recorder         Recorder
	MaxWriteAttempts int
	RetryBaseDelay   time.Duration
	WriteTimeout     time.Duration
	EventBuffer      int
	PublishTimeout   time.Duration
}

// Option настраивает Store.
type Option func(*Options)

// WithKey задаёт ключ снапшота.
func WithKey(key string) Option {
	return func(opts *Options) {
		opts.Key = key
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithPublisher задаёт publisher событий корзины.
func WithPublisher(publisher domain.EventPublisher) Option {
	return func(opts *Options) {
		opts.Publisher = publisher
	}
}

// WithRecorder задаёт сборщик метрик.
func WithRecorder(recorder Recorder) Option {
	return func(opts *Options) {
		opts.Recorder = recorder
	}
}

// WithMaxWriteAttempts задаёт число попыток записи снапшота.
func WithMaxWriteAttempts(attempts int) Option {
	return func(opts *Options) {
		opts.MaxWriteAttempts = attempts
	}
}

// WithRetryBaseDelay задаёт базовую задержку exponential backoff между попытками записи.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *Options) {
		opts.RetryBaseDelay = delay
	}
}

// WithWriteTimeout ограничивает одну попытку записи.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.WriteTimeout = timeout
	}
}

// WithEventBuffer задаёт размер буфера событий; при переполнении события отбрасываются.
func WithEventBuffer(size int) Option {
	return func(opts *Options) {
		opts.EventBuffer = size
	}
}

// WithPublishTimeout ограничивает публикацию одного события.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.PublishTimeout = timeout
	}
}

func buildOptions(options []Option) Options {
	opts := Options{
		Key:              DefaultKey,
		MaxWriteAttempts: defaultMaxWriteAttempts,
		RetryBaseDelay:   defaultRetryBaseDelay,
		WriteTimeout:     defaultWriteTimeout,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "cart-store")
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.MaxWriteAttempts <= 0 {
		opts.MaxWriteAttempts = defaultMaxWriteAttempts
	}
	if opts.RetryBaseDelay < 0 {
		opts.RetryBaseDelay = 0
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	return opts
}

// Store владеет состоянием корзины. Открытый Store и есть активный cart scope;
// nil-Store означает, что scope не открыт.
type Store struct {
	key      string
	kv       domain.KVStore
	catalog  domain.Catalog
	events   *eventEmitter
	recorder Recorder
	logger   *log.Entry
	persist  *persister

	mu       sync.RWMutex
	items    []domain.CartItem
	revision uint64
	closed   bool
}

// Open создаёт Store и выполняет гидрацию: снапшот из KV, иначе коллекция каталога.
// Ошибка каталога не подменяется пустой корзиной.
func Open(ctx context.Context, kv domain.KVStore, catalog domain.Catalog, options ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("cart: kv store is required")
	}

	opts := buildOptions(options)
	opts.Logger = opts.Logger.WithField("cart_key", opts.Key)
	s := &Store{
		key:      opts.Key,
		kv:       kv,
		catalog:  catalog,
		events:   newEventEmitter(opts.Publisher, opts),
		recorder: opts.Recorder,
		logger:   opts.Logger,
		items:    []domain.CartItem{},
	}

	if err := s.hydrate(ctx); err != nil {
		_ = s.events.close(context.Background())
		return nil, err
	}

	s.persist = newPersister(kv, s.key, opts)
	return s, nil
}

func (s *Store) hydrate(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.recorder.RecordHydration("failed")
		return fmt.Errorf("read cart snapshot: %w", err)
	}

	source := "store"
	var items []domain.CartItem
	if ok && raw != "" {
		items, err = decodeSnapshot(raw)
		if err != nil {
			s.recorder.RecordHydration("failed")
			return err
		}
	} else {
		source = "catalog"
		items, err = s.fetchCatalog(ctx)
		if err != nil {
			s.recorder.RecordHydration("failed")
			return err
		}
	}

	s.mu.Lock()
	s.items = items
	s.revision = 1
	s.mu.Unlock()

	s.recorder.RecordHydration(source)
	s.logger.WithFields(log.Fields{
		"source": source,
		"items":  len(items),
	}).Info("cart hydrated")

	s.publish(domain.CartEvent{Type: domain.CartEventHydrated, Revision: 1})
	return nil
}

func (s *Store) fetchCatalog(ctx context.Context) ([]domain.CartItem, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("%w: catalog is not configured", domain.ErrHydrationFetch)
	}

	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrHydrationFetch, err)
	}

	items := make([]domain.CartItem, 0, len(products))
	for _, product := range products {
		items = append(items, domain.ItemFromProduct(product))
	}
	return items, nil
}

// AddToCart добавляет товар или увеличивает количество существующей позиции.
func (s *Store) AddToCart(ctx context.Context, product domain.Product) (Snapshot, error) {
	if s == nil {
		return Snapshot{}, domain.ErrNoActiveScope
	}
	if product.ID == "" {
		return Snapshot{}, domain.ErrItemIDRequired
	}
	return s.commit(ctx, domain.CartEventItemAdded, product.ID, func(items []domain.CartItem) []domain.CartItem {
		return addItem(items, product)
	})
}

// Increment увеличивает количество позиции на 1. Неизвестный id: no-op.
func (s *Store) Increment(ctx context.Context, id string) (Snapshot, error) {
	if s == nil {
		return Snapshot{}, domain.ErrNoActiveScope
	}
	return s.commit(ctx, domain.CartEventIncremented, id, func(items []domain.CartItem) []domain.CartItem {
		return incrementItem(items, id)
	})
}

// Decrement уменьшает количество позиции на 1, но не ниже 1. Неизвестный id: no-op.
func (s *Store) Decrement(ctx context.Context, id string) (Snapshot, error) {
	if s == nil {
		return Snapshot{}, domain.ErrNoActiveScope
	}
	return s.commit(ctx, domain.CartEventDecremented, id, func(items []domain.CartItem) []domain.CartItem {
		return decrementItem(items, id)
	})
}

// commit применяет редьюсер к последнему зафиксированному состоянию, а не к значению,
// прочитанному вызывающим, поэтому конкурентные мутации не теряются.
func (s *Store) commit(
	ctx context.Context,
	eventType domain.CartEventType,
	itemID string,
	reduce func([]domain.CartItem) []domain.CartItem,
) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, domain.ErrStoreClosed
	}

	next := reduce(s.items)
	s.items = next
	s.revision++
	revision := s.revision

	payload, err := encodeSnapshot(next)
	if err != nil {
		s.recorder.RecordPersist("encode_failed", 0)
		s.logger.WithError(err).WithField("revision", revision).Warn("cart snapshot not persisted")
	} else {
		s.persist.enqueue(revision, payload)
	}

	snapshot := Snapshot{Items: domain.CloneItems(next), Revision: revision}

	event := domain.CartEvent{Type: eventType, ItemID: itemID, Revision: revision}
	if idx := indexOf(snapshot.Items, itemID); idx >= 0 {
		event.Quantity = snapshot.Items[idx].EffectiveQuantity()
	}
	// Событие ставится в очередь под мьютексом, чтобы порядок публикации совпадал с порядком ревизий.
	s.publish(event)
	s.mu.Unlock()

	s.recorder.RecordMutation(string(eventType))
	return snapshot, nil
}

func (s *Store) publish(event domain.CartEvent) {
	if s.events == nil {
		return
	}

	event.ID = uuid.NewString()
	event.CartKey = s.key
	event.Timestamp = time.Now().UTC()
	s.events.emit(event)
}

// Items возвращает копию текущих позиций.
func (s *Store) Items() ([]domain.CartItem, error) {
	snapshot, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snapshot.Items, nil
}

// Snapshot возвращает копию текущего состояния вместе с ревизией.
func (s *Store) Snapshot() (Snapshot, error) {
	if s == nil {
		return Snapshot{}, domain.ErrNoActiveScope
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Items: domain.CloneItems(s.items), Revision: s.revision}, nil
}

// Revision возвращает ревизию текущего состояния.
func (s *Store) Revision() (uint64, error) {
	if s == nil {
		return 0, domain.ErrNoActiveScope
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision, nil
}

// Key возвращает ключ снапшота в KV-хранилище.
func (s *Store) Key() string {
	if s == nil {
		return ""
	}
	return s.key
}

// Flush ждёт записи последнего снапшота и возвращает её результат.
// Мутации об ошибках записи не сообщают, Flush: единственный способ их увидеть.
func (s *Store) Flush(ctx context.Context) error {
	if s == nil {
		return domain.ErrNoActiveScope
	}
	return s.persist.flush(ctx)
}

// Close запрещает новые мутации, дописывает очередь записи и отправляет накопленные события.
func (s *Store) Close(ctx context.Context) error {
	if s == nil {
		return domain.ErrNoActiveScope
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	writeErr := s.persist.close(ctx)
	if err := s.events.close(ctx); err != nil && writeErr == nil {
		return err
	}
	return writeErr
}
