package supersede

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter mints monotonically increasing sequence numbers per slot.
type Counter interface {
	// Next increments the slot's sequence and returns the new value.
	Next(ctx context.Context, slot string) (uint64, error)
	// Current returns the latest sequence minted for slot, 0 if none.
	Current(ctx context.Context, slot string) (uint64, error)
}

// MemoryCounter keeps sequences in process memory. Like the redis keys, a
// slot idle for longer than the TTL is forgotten.
type MemoryCounter struct {
	mu        sync.Mutex
	slots     map[string]memorySlot
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type memorySlot struct {
	seq     uint64
	touched time.Time
}

type MemoryOption func(*MemoryCounter)

// WithTTL overrides DefaultKeyTTL.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryCounter) { c.ttl = ttl }
}

// WithMemoryClock overrides the time source.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCounter) { c.now = now }
}

func NewMemoryCounter(opts ...MemoryOption) *MemoryCounter {
	c := &MemoryCounter{
		slots: make(map[string]memorySlot),
		ttl:   DefaultKeyTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastSweep = c.now()
	return c
}

func (c *MemoryCounter) Next(_ context.Context, slot string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.sweep(now)
	}
	s := c.slots[slot]
	if now.Sub(s.touched) >= c.ttl {
		s.seq = 0
	}
	s.seq++
	s.touched = now
	c.slots[slot] = s
	return s.seq, nil
}

func (c *MemoryCounter) Current(_ context.Context, slot string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[slot]
	if !ok || c.now().Sub(s.touched) >= c.ttl {
		return 0, nil
	}
	return s.seq, nil
}

// Len returns how many slots are held, expired ones included until the
// next sweep.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

func (c *MemoryCounter) sweep(now time.Time) {
	for slot, s := range c.slots {
		if now.Sub(s.touched) >= c.ttl {
			delete(c.slots, slot)
		}
	}
	c.lastSweep = now
}

// DefaultKeyTTL bounds how long an idle slot's counter is kept in redis.
const DefaultKeyTTL = 24 * time.Hour

// RedisCounter shares sequences between replicas through redis INCR.
type RedisCounter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix, ttl: DefaultKeyTTL}
}

func (c *RedisCounter) key(slot string) string {
	return c.prefix + slot
}

func (c *RedisCounter) Next(ctx context.Context, slot string) (uint64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, c.key(slot))
	pipe.Expire(ctx, c.key(slot), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", slot, err)
	}
	return uint64(incr.Val()), nil
}

func (c *RedisCounter) Current(ctx context.Context, slot string) (uint64, error) {
	v, err := c.client.Get(ctx, c.key(slot)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", slot, err)
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis counter %s: %w", slot, err)
	}
	return n, nil
}
