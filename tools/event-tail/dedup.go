package main

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers event ids. FirstSeen reports true exactly once per id.
type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
}

// MemoryDeduper keeps the most recent ids in process, forgetting the oldest
// once capacity is reached.
type MemoryDeduper struct {
	mu       sync.Mutex
	capacity int
	ids      map[string]struct{}
	order    []string
}

func NewMemoryDeduper(capacity int) *MemoryDeduper {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryDeduper{capacity: capacity, ids: make(map[string]struct{}, capacity)}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.ids[eventID]; ok {
		return false, nil
	}
	if len(d.order) == d.capacity {
		delete(d.ids, d.order[0])
		d.order = d.order[1:]
	}
	d.ids[eventID] = struct{}{}
	d.order = append(d.order, eventID)
	return true, nil
}

// RedisDeduper shares dedup state between consumers through SET NX.
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: prefix, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+eventID, 1, d.ttl).Result()
}
