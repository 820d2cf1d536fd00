package events

import (
	"context"
	"log"
	"time"

	"github.com/w3bsuki/strike-cart-go/internal/bus"
	"github.com/w3bsuki/strike-cart-go/internal/cart"
)

// CartUpdatedPublisher is what the bridge needs from a broker publisher.
type CartUpdatedPublisher interface {
	PublishCartUpdated(ctx context.Context, u cart.Update) error
}

const publishTimeout = 5 * time.Second

// Bridge forwards settled cart updates from the in-process bus to the
// broker. Optimistic phases stay local: only committed and rolled-back
// states are durable truths worth fanning out. Returns the unsubscribe
// function.
func Bridge(b *bus.Bus[cart.Update], p CartUpdatedPublisher, logger *log.Logger) func() {
	return b.Subscribe(func(u cart.Update) {
		if u.Phase == cart.PhaseOptimistic {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := p.PublishCartUpdated(ctx, u); err != nil && logger != nil {
			// Best-effort: a broker outage must not fail the mutation
			logger.Printf("publish cart.updated for %s: %v", u.CartID, err)
		}
	})
}
