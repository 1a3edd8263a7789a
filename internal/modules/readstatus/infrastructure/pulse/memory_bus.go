package pulse

import (
	"context"
	"sync"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/repository"
)

// MemoryBus 进程内广播，多个服务实例共用一个时等价于同机多标签页
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[uint64]chan entity.Pulse
	nextID uint64
	closed bool
	done   chan struct{}
}

var _ repository.PulseBus = (*MemoryBus)(nil)

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[uint64]chan entity.Pulse),
		done: make(chan struct{}),
	}
}

// Publish 订阅方缓冲满时直接丢弃，脉冲本来就不保证送达
func (b *MemoryBus) Publish(_ context.Context, p entity.Pulse) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for _, ch := range b.subs {
		select {
		case ch <- p:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, fn func(entity.Pulse)) error {
	ch := make(chan entity.Pulse, 64)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		case p := <-ch:
			fn(p)
		}
	}
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	return nil
}
