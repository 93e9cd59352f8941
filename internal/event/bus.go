package event

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Handler func(ctx context.Context, event Event) error

// Bus delivers pipeline events to in-process subscribers. Handlers run
// synchronously on the publisher's goroutine; a failing handler is logged
// and never blocks delivery to the rest.
type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType Type, handler Handler) (unsubscribe func())
}

func NewBus() Bus {
	return &inProcessBus{subscribers: make(map[Type][]subscriber)}
}

type subscriber struct {
	id      uint64
	handler Handler
}

type inProcessBus struct {
	mu          sync.RWMutex
	subscribers map[Type][]subscriber
	nextID      uint64
}

func (b *inProcessBus) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := make([]subscriber, len(b.subscribers[event.Type]))
	copy(subs, b.subscribers[event.Type])
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			log.Error().Err(err).Str("event", string(event.Type)).Msg("event handler error")
		}
	}
}

func (b *inProcessBus) Subscribe(eventType Type, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}
