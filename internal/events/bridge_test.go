package events

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/w3bsuki/strike-cart-go/internal/bus"
	"github.com/w3bsuki/strike-cart-go/internal/cart"
)

type recordingPublisher struct {
	published []cart.Update
}

func (p *recordingPublisher) PublishCartUpdated(ctx context.Context, u cart.Update) error {
	p.published = append(p.published, u)
	return nil
}

func TestBridgeForwardsSettledPhasesOnly(t *testing.T) {
	b := bus.New[cart.Update]()
	pub := &recordingPublisher{}
	unsubscribe := Bridge(b, pub, log.New(io.Discard, "", 0))
	defer unsubscribe()

	b.Publish(cart.Update{CartID: "c1", Phase: cart.PhaseOptimistic, Seq: 1})
	b.Publish(cart.Update{CartID: "c1", Phase: cart.PhaseCommitted, Seq: 1})
	b.Publish(cart.Update{CartID: "c1", Phase: cart.PhaseRolledBack, Seq: 2, Err: "boom"})

	assert.Len(t, pub.published, 2)
	assert.Equal(t, cart.PhaseCommitted, pub.published[0].Phase)
	assert.Equal(t, cart.PhaseRolledBack, pub.published[1].Phase)
}

func TestBridgeUnsubscribe(t *testing.T) {
	b := bus.New[cart.Update]()
	pub := &recordingPublisher{}
	unsubscribe := Bridge(b, pub, nil)

	b.Publish(cart.Update{CartID: "c1", Phase: cart.PhaseCommitted, Seq: 1})
	unsubscribe()
	b.Publish(cart.Update{CartID: "c1", Phase: cart.PhaseCommitted, Seq: 2})

	assert.Len(t, pub.published, 1)
}
