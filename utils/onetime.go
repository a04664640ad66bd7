package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OneTimeStore keeps short-lived values that are read back once, such as
// captcha answers and OAuth states. Redis is used when enabled so any instance
// can redeem a value; otherwise values live in process memory.
type OneTimeStore struct {
	prefix string
	ttl    time.Duration

	mu  sync.Mutex
	mem map[string]oneTimeEntry
}

type oneTimeEntry struct {
	value   string
	expires time.Time
}

// NewOneTimeStore returns a store whose keys are namespaced by prefix and expire after ttl.
func NewOneTimeStore(prefix string, ttl time.Duration) *OneTimeStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OneTimeStore{prefix: prefix, ttl: ttl, mem: map[string]oneTimeEntry{}}
}

// Put stores value under key, replacing any previous value.
func (s *OneTimeStore) Put(key, value string) error {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		return rc.Set(ctx, s.prefix+key, value, s.ttl).Err()
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.mem {
		if now.After(e.expires) {
			delete(s.mem, k)
		}
	}
	s.mem[key] = oneTimeEntry{value: value, expires: now.Add(s.ttl)}
	return nil
}

// Take returns the value and removes it, so a second Take of the same key fails.
func (s *OneTimeStore) Take(key string) (string, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		v, err := rc.GetDel(ctx, s.prefix+key).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				Sugar.Warnf("one-time take key=%s err=%v", s.prefix+key, err)
			}
			return "", false
		}
		return v, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.mem[key]
	delete(s.mem, key)
	if !ok || time.Now().After(e.expires) {
		return "", false
	}
	return e.value, true
}

// Peek returns the value without consuming it.
func (s *OneTimeStore) Peek(key string) (string, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()
		v, err := rc.Get(ctx, s.prefix+key).Result()
		if err != nil {
			return "", false
		}
		return v, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.mem[key]
	if !ok || time.Now().After(e.expires) {
		return "", false
	}
	return e.value, true
}
