package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store counts hits per key inside a fixed window. The window starts on the
// first hit for a key and ends at the returned reset time.
type Store interface {
	Get(ctx context.Context, key string) (count int, resetTime time.Time, err error)
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetTime time.Time, err error)
	Reset(ctx context.Context, key string) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*entry
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

type entry struct {
	count     int
	resetTime time.Time
}

func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		data: make(map[string]*entry),
		now:  time.Now,
		stop: make(chan struct{}),
	}

	go store.cleanup()

	return store
}

func (s *MemoryStore) Get(_ context.Context, key string) (int, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, exists := s.data[key]; exists && s.now().Before(e.resetTime) {
		return e.count, e.resetTime, nil
	}

	return 0, time.Time{}, nil
}

func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, exists := s.data[key]; exists && now.Before(e.resetTime) {
		e.count++
		return e.count, e.resetTime, nil
	}

	e := &entry{count: 1, resetTime: now.Add(window)}
	s.data[key] = e

	return e.count, e.resetTime, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Close stops the background sweep.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.data {
		if !now.Before(entry.resetTime) {
			delete(s.data, key)
		}
	}
}

var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (int, time.Time, error) {
	if s.client == nil {
		return 0, time.Time{}, errors.New("redis client is nil")
	}

	pipe := s.client.Pipeline()
	countCmd := pipe.Get(ctx, s.key(key))
	ttlCmd := pipe.PTTL(ctx, s.key(key))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, time.Time{}, err
	}

	count, err := countCmd.Int()
	if errors.Is(err, redis.Nil) {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}

	ttl := ttlCmd.Val()
	if ttl <= 0 {
		return 0, time.Time{}, nil
	}
	return count, s.now().Add(ttl), nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	if s.client == nil {
		return 0, time.Time{}, errors.New("redis client is nil")
	}

	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1000
	}

	raw, err := incrementScript.Run(ctx, s.client, []string{s.key(key)}, windowMS).Result()
	if err != nil {
		return 0, time.Time{}, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis script response: %v", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unexpected redis count type %T", values[0])
	}
	ttl, ok := values[1].(int64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("unexpected redis ttl type %T", values[1])
	}

	return int(count), s.now().Add(time.Duration(ttl) * time.Millisecond), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if s.client == nil {
		return errors.New("redis client is nil")
	}
	return s.client.Del(ctx, s.key(key)).Err()
}
