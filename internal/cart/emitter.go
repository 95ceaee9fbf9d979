package cart

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

const (
	defaultEventBuffer    = 256
	defaultPublishTimeout = 5 * time.Second
)

// eventEmitter публикует события корзины из отдельной горутины в порядке коммитов.
// Переполненный буфер отбрасывает событие, мутация его не ждёт.
type eventEmitter struct {
	publisher domain.EventPublisher
	recorder  Recorder
	logger    *log.Entry
	timeout   time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan domain.CartEvent
	done   chan struct{}
}

func newEventEmitter(publisher domain.EventPublisher, opts Options) *eventEmitter {
	if publisher == nil {
		return nil
	}

	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	timeout := opts.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	e := &eventEmitter{
		publisher: publisher,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		timeout:   timeout,
		queue:     make(chan domain.CartEvent, buffer),
		done:      make(chan struct{}),
	}
	go e.run()
	return e
}

// emit никогда не блокируется.
func (e *eventEmitter) emit(event domain.CartEvent) {
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.recorder.RecordEventPublish("dropped")
		return
	}

	select {
	case e.queue <- event:
	default:
		e.recorder.RecordEventPublish("dropped")
		e.logger.WithFields(log.Fields{
			"event_type": event.Type,
			"revision":   event.Revision,
		}).Warn("cart event buffer is full, event dropped")
	}
}

func (e *eventEmitter) run() {
	defer close(e.done)

	for event := range e.queue {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		err := e.publisher.PublishCartEvent(ctx, event)
		cancel()

		if err != nil {
			e.recorder.RecordEventPublish("failed")
			e.logger.WithError(err).WithField("event_type", event.Type).Warn("failed to publish cart event")
			continue
		}
		e.recorder.RecordEventPublish("sent")
	}
}

// close дожидается отправки уже принятых событий.
func (e *eventEmitter) close(ctx context.Context) error {
	if e == nil {
		return nil
	}

	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
