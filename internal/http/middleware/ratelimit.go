package middleware

import (
	"context"
	"sync"
	"time"
)

type clientInfo struct {
	start time.Time
	count int64
}

// memoryCounter is the fixed-window counter used when Redis is not
// configured. Limits then apply per process.
type memoryCounter struct {
	mu      sync.Mutex
	entries map[string]*clientInfo
	now     func() time.Time
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{entries: make(map[string]*clientInfo), now: time.Now}
}

func (m *memoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ci, ok := m.entries[key]
	if !ok || now.Sub(ci.start) > window {
		ci = &clientInfo{start: now}
		m.entries[key] = ci
	}
	ci.count++

	// чистим протухшие окна, чтобы карта не росла бесконечно
	if len(m.entries) > 10000 {
		for k, v := range m.entries {
			if now.Sub(v.start) > window {
				delete(m.entries, k)
			}
		}
	}
	return ci.count, nil
}
