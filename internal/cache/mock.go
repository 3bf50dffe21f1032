package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryClient is the in-process Cache used when Redis is not configured and
// in tests. Entries expire lazily on read.
type MemoryClient struct {
	mu   sync.Mutex
	data map[string]time.Time
	now  func() time.Time
}

var _ Cache = (*MemoryClient)(nil)

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		data: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (m *MemoryClient) Close() error {
	return nil
}

func (m *MemoryClient) live(key string) bool {
	exp, ok := m.data[key]
	if !ok {
		return false
	}
	if !exp.IsZero() && !m.now().Before(exp) {
		delete(m.data, key)
		return false
	}
	return true
}

func (m *MemoryClient) set(key string, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.data[key] = exp
}

func (m *MemoryClient) IsProcessed(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live("url:" + hash), nil
}

func (m *MemoryClient) MarkProcessed(ctx context.Context, hash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set("url:"+hash, ttl)
	return nil
}

func (m *MemoryClient) AcquireOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live("once:" + key) {
		return false, nil
	}
	m.set("once:"+key, ttl)
	return true, nil
}

func (m *MemoryClient) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, "once:"+key)
	return nil
}
