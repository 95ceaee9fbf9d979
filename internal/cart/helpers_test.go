package cart_test

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

type stubKV struct {
	mu       sync.Mutex
	values   map[string]string
	getErr   error
	setErrs  []error
	setCalls int
	history  []string
}

func newStubKV() *stubKV {
	return &stubKV{values: make(map[string]string)}
}

func (s *stubKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return "", false, s.getErr
	}
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *stubKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setCalls++
	if len(s.setErrs) > 0 {
		err := s.setErrs[0]
		s.setErrs = s.setErrs[1:]
		if err != nil {
			return err
		}
	}
	s.values[key] = value
	s.history = append(s.history, value)
	return nil
}

func (s *stubKV) value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

func (s *stubKV) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCalls
}

type stubCatalog struct {
	mu        sync.Mutex
	products  []domain.Product
	err       error
	callCount int
}

func (s *stubCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Product(nil), s.products...), nil
}

func (s *stubCatalog) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.CartEvent
	err    error
}

func (s *stubPublisher) PublishCartEvent(_ context.Context, event domain.CartEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *stubPublisher) published() []domain.CartEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartEvent(nil), s.events...)
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func shoeCatalog() *stubCatalog {
	return &stubCatalog{products: []domain.Product{{ID: "p1", Title: "Shoe", ImageURL: "u", Price: 100}}}
}

// blockingKV задерживает каждую запись до закрытия release.
type blockingKV struct {
	*stubKV
	entered chan struct{}
	release chan struct{}
}

func newBlockingKV() *blockingKV {
	return &blockingKV{
		stubKV:  newStubKV(),
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingKV) Set(ctx context.Context, key, value string) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.stubKV.Set(ctx, key, value)
}

// blockingPublisher принимает события только после закрытия release.
type blockingPublisher struct {
	stubPublisher
	release chan struct{}

	waitMu  sync.Mutex
	waiting int
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{release: make(chan struct{})}
}

func (b *blockingPublisher) PublishCartEvent(ctx context.Context, event domain.CartEvent) error {
	b.waitMu.Lock()
	b.waiting++
	b.waitMu.Unlock()

	<-b.release
	return b.stubPublisher.PublishCartEvent(ctx, event)
}

func (b *blockingPublisher) pending() int {
	b.waitMu.Lock()
	defer b.waitMu.Unlock()
	return b.waiting
}
