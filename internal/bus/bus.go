// Package bus is a typed in-process publish/subscribe used to fan out
// committed cart changes to independent consumers (HTTP push surfaces,
// the AMQP bridge) without a shared call chain.
package bus

import "sync"

type Handler[T any] func(T)

// Bus delivers events synchronously and best-effort to the handlers
// subscribed at publish time. There is no replay: subscribers that
// register after a publish do not see it.
type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[int]Handler[T]
	next int
}

func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]Handler[T])}
}

// Subscribe registers a handler and returns its unsubscribe function.
func (b *Bus[T]) Subscribe(h Handler[T]) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish invokes every registered handler with v, synchronously and in
// unspecified order.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	handlers := make([]Handler[T], 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(v)
	}
}
