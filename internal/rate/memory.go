package rate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryMultiLimiter: fixed window in-process, misma semántica que el de Redis.
// Solo sirve para single-node; en multi-nodo cada réplica cuenta por separado.
type MemoryMultiLimiter struct {
	mu      sync.Mutex
	windows map[string]*memWindow
	now     func() time.Time
}

type memWindow struct {
	start time.Time
	hits  int64
}

func NewMemoryMultiLimiter() *MemoryMultiLimiter {
	return &MemoryMultiLimiter{
		windows: make(map[string]*memWindow),
		now:     time.Now,
	}
}

func (m *MemoryMultiLimiter) AllowWithLimits(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := m.now().UTC()
	winStart := now.Truncate(window)
	k := fmt.Sprintf("%s:%d:%s", key, limit, window.String())

	m.mu.Lock()
	w, ok := m.windows[k]
	if !ok || w.start.Before(winStart) {
		w = &memWindow{start: winStart}
		m.windows[k] = w
	}
	w.hits++
	hits := w.hits
	m.mu.Unlock()

	max := int64(limit)
	allowed := hits <= max
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   winStart.Add(window).Sub(now),
	}
	if !allowed {
		res.RetryAfter = res.WindowTTL
	}
	return res, nil
}

// Purge descarta ventanas viejas; llamarlo de vez en cuando para no crecer
// sin límite con keys de IPs efímeras.
func (m *MemoryMultiLimiter) Purge() {
	now := m.now().UTC()
	m.mu.Lock()
	for k, w := range m.windows {
		// heuristic: una ventana que empezó hace más de 1h ya no cuenta
		if now.Sub(w.start) > time.Hour {
			delete(m.windows, k)
		}
	}
	m.mu.Unlock()
}

// Len devuelve cuántas ventanas viven en memoria.
func (m *MemoryMultiLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// StartPurger corre Purge periódicamente hasta que el contexto se cancele.
func (m *MemoryMultiLimiter) StartPurger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Purge()
			}
		}
	}()
}
