package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/zennify/zennify/internal/domain"
	"github.com/zennify/zennify/internal/infra/healing"
)

// Bus carries events between publishers and the local hub.
type Bus interface {
	Publish(ctx context.Context, ev domain.Event) error
	StartForwarder(ctx context.Context, onMsg func(ev domain.Event)) error
	Close() error
}

// memoryBus delivers events synchronously inside one process.
type memoryBus struct {
	mu    sync.RWMutex
	onMsg func(ev domain.Event)
}

// NewMemoryBus returns an in-process bus.
func NewMemoryBus() Bus {
	return &memoryBus{}
}

func (b *memoryBus) Publish(_ context.Context, ev domain.Event) error {
	b.mu.RLock()
	fn := b.onMsg
	b.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onMsg func(ev domain.Event)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.onMsg = onMsg
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.onMsg = nil
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error { return nil }

// Publisher adapts a Bus to domain.Publisher. With a Breaker set, publishes
// fail fast while the bus is down.
type Publisher struct {
	Bus     Bus
	Breaker *healing.Breaker
}

var _ domain.Publisher = Publisher{}

// Publish forwards ev to the bus.
func (p Publisher) Publish(ctx context.Context, ev domain.Event) error {
	if p.Bus == nil {
		return nil
	}
	if p.Breaker == nil {
		return p.Bus.Publish(ctx, ev)
	}
	return p.Breaker.Do(func() error { return p.Bus.Publish(ctx, ev) })
}
