package cart

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultEvictInterval = time.Minute
	defaultIdleTTL       = 30 * time.Minute
)

// EvictorOptions задаёт параметры воркера вытеснения простаивающих scope.
type EvictorOptions struct {
	Logger   *log.Entry
	Interval time.Duration
	IdleTTL  time.Duration
}

// EvictorOption настраивает IdleEvictor.
type EvictorOption func(*EvictorOptions)

// WithEvictorLogger задаёт logger воркера.
func WithEvictorLogger(logger *log.Entry) EvictorOption {
	return func(opts *EvictorOptions) {
		opts.Logger = logger
	}
}

// WithEvictInterval задаёт интервал между циклами вытеснения.
func WithEvictInterval(interval time.Duration) EvictorOption {
	return func(opts *EvictorOptions) {
		opts.Interval = interval
	}
}

// WithIdleTTL задаёт время простоя, после которого scope закрывается.
func WithIdleTTL(ttl time.Duration) EvictorOption {
	return func(opts *EvictorOptions) {
		opts.IdleTTL = ttl
	}
}

// IdleEvictor периодически закрывает scope, к которым давно не обращались.
// Снапшот закрываемого scope дописывается, повторный Open гидрирует его из хранилища.
type IdleEvictor struct {
	registry *Registry
	logger   *log.Entry
	interval time.Duration
	idleTTL  time.Duration
}

// NewIdleEvictor создаёт воркер вытеснения для registry.
func NewIdleEvictor(registry *Registry, options ...EvictorOption) *IdleEvictor {
	opts := EvictorOptions{
		Interval: defaultEvictInterval,
		IdleTTL:  defaultIdleTTL,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-scope-evictor")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultEvictInterval
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}

	return &IdleEvictor{
		registry: registry,
		logger:   logger,
		interval: opts.Interval,
		idleTTL:  opts.IdleTTL,
	}
}

// Run запускает периодическое вытеснение до отмены ctx.
func (e *IdleEvictor) Run(ctx context.Context) {
	if e.registry == nil {
		e.logger.Warn("scope evictor is disabled: registry is nil")
		return
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evict(ctx)
		}
	}
}

func (e *IdleEvictor) evict(ctx context.Context) {
	evicted, err := e.EvictOnce(ctx, e.registry.now())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		e.logger.WithError(err).WithField("evicted", evicted).Warn("scope eviction finished with errors")
		return
	}
	if evicted > 0 {
		e.logger.WithField("evicted", evicted).Info("idle cart scopes evicted")
	}
}

// EvictOnce закрывает scope, простаивающие дольше idleTTL относительно now.
func (e *IdleEvictor) EvictOnce(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return e.registry.EvictIdle(ctx, now.Add(-e.idleTTL))
}
