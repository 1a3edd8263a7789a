package kv

import (
	"context"
	"sync"
)

type Op int

const (
	OpSet Op = iota + 1
	OpRemove
)

// Event 内存存储的变更记录
type Event struct {
	Op    Op
	Key   string
	Value []byte
}

// Memory 进程内存储，用于测试和未配置持久化驱动的场景
type Memory struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[int]func(Event)
	nextID   int
}

func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string][]byte),
		watchers: make(map[int]func(Event)),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.data[key] = v
	watchers := m.snapshotWatchers()
	m.mu.Unlock()
	for _, w := range watchers {
		w(Event{Op: OpSet, Key: key, Value: v})
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	watchers := m.snapshotWatchers()
	m.mu.Unlock()
	for _, w := range watchers {
		w(Event{Op: OpRemove, Key: key})
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Watch 注册变更回调，返回取消函数
func (m *Memory) Watch(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *Memory) snapshotWatchers() []func(Event) {
	if len(m.watchers) == 0 {
		return nil
	}
	out := make([]func(Event), 0, len(m.watchers))
	for _, w := range m.watchers {
		out = append(out, w)
	}
	return out
}
