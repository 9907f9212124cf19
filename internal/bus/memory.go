package bus

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemoryBus is an in-process Publisher and Consumer for single-node runs and tests.
//
// Nothing survives the process. When Run stops it closes the bus and gives every buffered
// message one last delivery attempt, then logs whatever is still undelivered for
// reconciliation.
type MemoryBus struct {
	log      *logrus.Logger
	messages chan Message

	// mu keeps Close from returning while a Publish is still sending.
	mu        sync.RWMutex
	isClosed  bool
	closed    chan struct{}
	closeOnce sync.Once
}

var (
	_ Publisher = (*MemoryBus)(nil)
	_ Consumer  = (*MemoryBus)(nil)
)

func NewMemoryBus(log *logrus.Logger, buffer int) *MemoryBus {
	if buffer < 1 {
		buffer = 1
	}
	return &MemoryBus{
		log:      log,
		messages: make(chan Message, buffer),
		closed:   make(chan struct{}),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.isClosed {
		return ErrClosed
	}

	select {
	case b.messages <- msg:
		return nil
	case <-b.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBus) Run(ctx context.Context, handler Handler) error {
	defer b.shutdown(ctx, handler)

	for {
		select {
		case msg := <-b.messages:
			if err := deliver(ctx, b.log, handler, msg); err != nil {
				abandon(b.log, msg, err)
			}
		case <-b.closed:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// shutdown closes the bus and drains it. Close blocks until a concurrent Close has finished,
// so no publisher can add to the buffer behind the drain.
func (b *MemoryBus) shutdown(ctx context.Context, handler Handler) {
	_ = b.Close()
	b.drain(ctx, handler)
}

// drain tries each message left in the buffer once.
func (b *MemoryBus) drain(ctx context.Context, handler Handler) {
	for {
		select {
		case msg := <-b.messages:
			if err := handler.HandleMessage(context.WithoutCancel(ctx), msg); err != nil {
				abandon(b.log, msg, err)
			}
		default:
			return
		}
	}
}

func (b *MemoryBus) Close() error {
	b.closeOnce.Do(func() {
		close(b.closed)
		b.mu.Lock()
		b.isClosed = true
		b.mu.Unlock()
	})
	return nil
}
