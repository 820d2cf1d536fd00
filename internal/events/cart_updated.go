package events

import (
	"time"

	"github.com/w3bsuki/strike-cart-go/internal/cart"
)

const CartUpdatedQueue = "cart.updated"

// CartUpdated is the broker contract for a committed or rolled-back
// cart change, so other storefront processes converge on the same
// state.
type CartUpdated struct {
	EventType     string    `json:"eventType"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CartID        string    `json:"cartId"`
	Phase         string    `json:"phase"`
	Sequence      uint64    `json:"sequence"`
	Cart          cart.Cart `json:"cart"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
