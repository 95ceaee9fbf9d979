package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/cartstate/internal/domain"
)

// TopicCartEvents: topic событий корзины.
const TopicCartEvents = "cartstate.cart.events"

// Kafka headers
const (
	HeaderEventType = "x-event-type"
	HeaderRevision  = "x-cart-revision"
)

// CartEventMessage: JSON-представление события корзины в Kafka.
type CartEventMessage struct {
	EventID   string               `json:"event_id"`
	EventType domain.CartEventType `json:"event_type"`
	CartKey   string               `json:"cart_key"`
	ItemID    string               `json:"item_id,omitempty"`
	Quantity  int                  `json:"quantity,omitempty"`
	Revision  uint64               `json:"revision"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewCartEventMessage переводит доменное событие в сообщение topic'а.
func NewCartEventMessage(event domain.CartEvent) CartEventMessage {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return CartEventMessage{
		EventID:   event.ID,
		EventType: event.Type,
		CartKey:   event.CartKey,
		ItemID:    event.ItemID,
		Quantity:  event.Quantity,
		Revision:  event.Revision,
		Timestamp: ts,
	}
}
