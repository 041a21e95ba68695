package notify

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	listenerMinReconnect = 5 * time.Second
	listenerMaxReconnect = time.Minute
)

type pgBus struct {
	db       *sql.DB
	listener *pq.Listener

	mu      sync.Mutex
	subs    map[string][]chan string
	closed  bool
	closeCh chan struct{}
}

// NewPostgres builds a Bus over LISTEN/NOTIFY. The listener reconnects on
// its own; a reconnect can drop notifications, which is acceptable because
// every consumer also polls.
func NewPostgres(db *sql.DB, dsn string) (Bus, error) {
	listener := pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logutil.GetLogger(context.Background()).Error("pg listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	for _, ch := range []string{ChannelNewDocument, ChannelIngestedDoc, ChannelProgressUpdate} {
		if err := listener.Listen(ch); err != nil {
			_ = listener.Close()
			return nil, err
		}
	}
	bus := &pgBus{
		db:       db,
		listener: listener,
		subs:     make(map[string][]chan string),
		closeCh:  make(chan struct{}),
	}
	go bus.dispatch()
	return bus, nil
}

func (b *pgBus) dispatch() {
	for {
		select {
		case n, ok := <-b.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// nil marks a reconnect; subscribers poll to recover.
				continue
			}
			b.fanout(n.Channel, n.Extra)
		case <-b.closeCh:
			return
		}
	}
}

func (b *pgBus) fanout(channel string, payload string) {
	b.mu.Lock()
	targets := append([]chan string(nil), b.subs[channel]...)
	b.mu.Unlock()
	for _, ch := range targets {
		select {
		case ch <- payload:
		default:
			// slow subscriber, drop
		}
	}
}

func (b *pgBus) Publish(ctx context.Context, channel string, payload string) error {
	_, err := b.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, payload)
	return err
}

func (b *pgBus) Subscribe(channel string) (<-chan string, func()) {
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

func (b *pgBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, list := range b.subs {
		for _, ch := range list {
			close(ch)
		}
	}
	b.subs = make(map[string][]chan string)
	b.mu.Unlock()
	close(b.closeCh)
	return b.listener.Close()
}
