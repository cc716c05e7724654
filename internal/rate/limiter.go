// Package rate implementa rate limiting fixed-window para los endpoints SSO.
// Los límites son por IP y por endpoint (redirect / callback); el backend
// Redis sirve para despliegues multi-nodo, el de memoria para single-node.
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// MultiLimiter permite usar diferentes límites por endpoint sobre el mismo backend.
type MultiLimiter interface {
	AllowWithLimits(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE).
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return Result{}, err
	}

	// set expiry on first hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}

	hits := incr.Val()
	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl.Val(),
	}
	if !allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl.Val()
		if res.RetryAfter < 0 {
			res.RetryAfter = time.Duration(math.Ceil(l.Window.Seconds())) * time.Second
		}
	}
	return res, nil
}

// RedisMultiLimiter mantiene el algoritmo fixed-window del RedisLimiter
// permitiendo límites distintos por configuración limit+window.
type RedisMultiLimiter struct {
	client *rdb.Client
	prefix string
	mu     sync.RWMutex
	// Cache de limiters por configuración para eficiencia
	limiters map[string]*RedisLimiter
}

func NewRedisMultiLimiter(client *rdb.Client, prefix string) *RedisMultiLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisMultiLimiter{
		client:   client,
		prefix:   prefix,
		limiters: make(map[string]*RedisLimiter),
	}
}

func (m *RedisMultiLimiter) AllowWithLimits(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	configKey := fmt.Sprintf("%d:%s", limit, window.String())

	m.mu.RLock()
	limiter, exists := m.limiters[configKey]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		// Double-check pattern para evitar race conditions
		if limiter, exists = m.limiters[configKey]; !exists {
			limiter = NewRedisLimiter(m.client, m.prefix, limit, window)
			m.limiters[configKey] = limiter
		}
		m.mu.Unlock()
	}

	return limiter.Allow(ctx, key)
}
