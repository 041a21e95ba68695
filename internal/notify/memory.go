package notify

import (
	"context"
	"sync"
)

type memBus struct {
	mu     sync.Mutex
	subs   map[string][]chan string
	closed bool
}

// NewMemory is an in-process Bus for tests and single-process deployments.
func NewMemory() Bus {
	return &memBus{subs: make(map[string][]chan string)}
}

func (b *memBus) Publish(ctx context.Context, channel string, payload string) error {
	b.mu.Lock()
	targets := append([]chan string(nil), b.subs[channel]...)
	b.mu.Unlock()
	for _, ch := range targets {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *memBus) Subscribe(channel string) (<-chan string, func()) {
	ch := make(chan string, 16)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			removed := false
			list := b.subs[channel]
			for i, c := range list {
				if c == ch {
					b.subs[channel] = append(list[:i], list[i+1:]...)
					removed = true
					break
				}
			}
			b.mu.Unlock()
			// Close closes every subscriber channel itself; only the
			// party that removed the channel may close it.
			if removed {
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (b *memBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, list := range b.subs {
		for _, ch := range list {
			close(ch)
		}
	}
	b.subs = make(map[string][]chan string)
	return nil
}
