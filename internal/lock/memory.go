package lock

import (
	"context"
	"sync"
)

// MemoryLocker はプロセス内のキー単位ロック
// 単一インスタンス構成で使用する。複数インスタンスでは Redis の実装を使う
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	sem  chan struct{}
	refs int
}

// NewMemoryLocker は MemoryLocker を作成する
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*memoryEntry)}
}

// Acquire はキーのロックを取得する
func (m *MemoryLocker) Acquire(ctx context.Context, key string) (Lock, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &memoryEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return &memoryLock{owner: m, key: key, entry: e}, nil
	case <-ctx.Done():
		m.unref(key, e)
		return nil, ctx.Err()
	}
}

// Len は待機中または保持中のキー数を返す
func (m *MemoryLocker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryLocker) unref(key string, e *memoryEntry) {
	m.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
	m.mu.Unlock()
}

type memoryLock struct {
	once  sync.Once
	owner *MemoryLocker
	key   string
	entry *memoryEntry
}

func (l *memoryLock) Release(context.Context) error {
	l.once.Do(func() {
		<-l.entry.sem
		l.owner.unref(l.key, l.entry)
	})
	return nil
}
