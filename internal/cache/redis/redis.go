package redis

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Cache implementa cache.Cache sobre Redis. Las keys llevan un prefijo
// opcional para convivir con otros usos de la misma instancia.
type Cache struct {
	c      *rdb.Client
	prefix string
}

func New(addr string, db int, prefix string) *Cache {
	return &Cache{
		c:      rdb.NewClient(&rdb.Options{Addr: addr, DB: db}),
		prefix: prefix,
	}
}

// Client expone el cliente subyacente (lo reusa el rate limiter).
func (r *Cache) Client() *rdb.Client { return r.c }

func (r *Cache) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Cache) Get(k string) ([]byte, bool) {
	b, err := r.c.Get(context.Background(), r.key(k)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Cache) Set(k string, v []byte, ttl time.Duration) {
	_ = r.c.Set(context.Background(), r.key(k), v, ttl).Err()
}

func (r *Cache) Delete(k string) { _ = r.c.Del(context.Background(), r.key(k)).Err() }

func (r *Cache) Close() error { return r.c.Close() }
