// Package observer 订阅/通知。Registry 无负载，回调被触发后由订阅方自行重新读取当前状态；
// Topic 携带一个值（如连接状态）。
package observer

import (
	"sync"

	"github.com/Phambanam99/qlvb-thanh-sub003/pkg/zlog"

	"go.uber.org/zap"
)

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Topic 按注册顺序回调的订阅集合
type Topic[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

// Subscribe 注册回调，返回的取消函数可重复调用
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

// Publish 按注册顺序调用所有回调；回调在锁外执行，可以在回调里再订阅/取消
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	subs := make([]subscriber[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, s := range subs {
		call(s.fn, v)
	}
}

// Len 当前订阅数
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Registry 无负载的 Topic
type Registry struct {
	topic Topic[struct{}]
}

func (r *Registry) Subscribe(fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	return r.topic.Subscribe(func(struct{}) { fn() })
}

func (r *Registry) Notify() {
	r.topic.Publish(struct{}{})
}

func (r *Registry) Len() int {
	return r.topic.Len()
}

func call[T any](fn func(T), v T) {
	defer func() {
		if rec := recover(); rec != nil {
			zlog.Error("observer callback panic", zap.Any("recover", rec))
		}
	}()
	fn(v)
}
