package utils

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/aiblog/config"
)

// Cache key prefixes. Writes to posts or comments invalidate by prefix.
const (
	CachePostList   = "cache:posts:list:"
	CachePostDetail = "cache:post:detail:"
	CacheSidebar    = "cache:sidebar:"
)

const (
	cacheTimeout      = 2 * time.Second
	invalidateTimeout = 3 * time.Second
	cacheScanBatch    = 500
)

// CachedResponse returns the stored response envelope for key. Always a miss when Redis is disabled.
func CachedResponse(ctx context.Context, key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Sugar.Warnf("cache get key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// CacheResponse stores data wrapped in the success envelope for the configured TTL.
func CacheResponse(ctx context.Context, key string, data interface{}) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	b, err := json.Marshal(JSONResponse{Code: 0, Message: "success", Data: data})
	if err != nil {
		Sugar.Warnf("cache encode key=%s err=%v", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()
	if err := rc.Set(ctx, key, b, config.Get().CacheTTL).Err(); err != nil {
		Sugar.Warnf("cache set key=%s err=%v", key, err)
	}
}

// InvalidateByPrefix unlinks every key under the given prefixes.
// It outlives a cancelled request so a finished write never leaves stale pages behind.
func InvalidateByPrefix(ctx context.Context, prefixes ...string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	for _, prefix := range prefixes {
		batch := make([]string, 0, cacheScanBatch)
		iter := rc.Scan(ctx, 0, prefix+"*", cacheScanBatch).Iterator()
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == cacheScanBatch {
				unlink(ctx, rc, batch)
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			Sugar.Warnf("cache scan prefix=%s err=%v", prefix, err)
		}
		unlink(ctx, rc, batch)
	}
}

// InvalidatePostCaches drops every cached page that may show post data.
func InvalidatePostCaches(ctx context.Context) {
	InvalidateByPrefix(ctx, CachePostList, CachePostDetail, CacheSidebar)
}

func unlink(ctx context.Context, rc *redis.Client, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := rc.Unlink(ctx, keys...).Err(); err != nil {
		Sugar.Warnf("cache unlink %d keys err=%v", len(keys), err)
	}
}
