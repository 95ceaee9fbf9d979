package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

const (
	defaultMaxWriteAttempts = 1
	defaultRetryBaseDelay   = 50 * time.Millisecond
	defaultWriteTimeout     = 5 * time.Second
)

type writeRequest struct {
	revision uint64
	payload  string
}

// persister: очередь записи снапшотов с единственным writer'ом.
// Новый снапшот вытесняет ещё не записанный, записи идут строго по порядку,
// поэтому в хранилище остаётся состояние последней мутации.
type persister struct {
	kv             domain.KVStore
	key            string
	logger         *log.Entry
	recorder       Recorder
	maxAttempts    int
	retryBaseDelay time.Duration
	writeTimeout   time.Duration

	mu          sync.Mutex
	pending     *writeRequest
	enqueuedRev uint64
	writtenRev  uint64
	lastErr     error
	changed     chan struct{}
	closed      bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newPersister(kv domain.KVStore, key string, opts Options) *persister {
	p := &persister{
		kv:             kv,
		key:            key,
		logger:         opts.Logger.WithField("cart_key", key),
		recorder:       opts.Recorder,
		maxAttempts:    opts.MaxWriteAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		writeTimeout:   opts.WriteTimeout,
		changed:        make(chan struct{}),
		wake:           make(chan struct{}, 1),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	go p.run()
	return p
}

// enqueue ставит снапшот в очередь и никогда не блокируется на I/O.
func (p *persister) enqueue(revision uint64, payload string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.WithField("revision", revision).Warn("write queue is closed, snapshot dropped")
		return
	}

	p.pending = &writeRequest{revision: revision, payload: payload}
	if revision > p.enqueuedRev {
		p.enqueuedRev = revision
	}

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)

	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stop:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		req := p.pending
		p.pending = nil
		p.mu.Unlock()

		if req == nil {
			return
		}

		err := p.write(*req)

		p.mu.Lock()
		if req.revision > p.writtenRev {
			p.writtenRev = req.revision
		}
		p.lastErr = err
		close(p.changed)
		p.changed = make(chan struct{})
		p.mu.Unlock()
	}
}

func (p *persister) write(req writeRequest) error {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		err := p.kv.Set(ctx, p.key, req.payload)
		cancel()

		if err == nil {
			p.recorder.RecordPersist("ok", time.Since(start))
			p.logger.WithFields(log.Fields{
				"revision": req.revision,
				"attempt":  attempt,
			}).Debug("cart snapshot persisted")
			return nil
		}
		lastErr = err

		if attempt >= p.maxAttempts {
			break
		}
		if delay := p.retryBackoff(attempt); delay > 0 {
			time.Sleep(delay)
		}
	}

	p.recorder.RecordPersist("failed", time.Since(start))
	p.logger.WithError(lastErr).WithFields(log.Fields{
		"revision": req.revision,
		"attempts": p.maxAttempts,
	}).Warn("cart snapshot write failed")

	return fmt.Errorf("%w: %w", domain.ErrPersistenceWrite, lastErr)
}

func (p *persister) retryBackoff(attempt int) time.Duration {
	if p.retryBaseDelay <= 0 {
		return 0
	}

	const maxDuration = time.Duration(1<<63 - 1)
	delay := p.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > maxDuration/2 {
			return maxDuration
		}
		delay *= 2
	}
	return delay
}

// flush ждёт записи последнего поставленного снапшота и возвращает результат этой записи.
func (p *persister) flush(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.writtenRev >= p.enqueuedRev {
			err := p.lastErr
			p.mu.Unlock()
			return err
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// close дописывает очередь и останавливает writer.
func (p *persister) close(ctx context.Context) error {
	p.mu.Lock()
	alreadyClosed := p.closed
	p.closed = true
	p.mu.Unlock()

	if !alreadyClosed {
		close(p.stop)
	}

	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}
