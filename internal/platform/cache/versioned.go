package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// BumpChannel carries "<scope>:<version>" notifications after a bump.
const BumpChannel = "rinde.cache.bump"

// Versioned caches JSON payloads under keys suffixed with a per-scope version.
// Bumping the version orphans every key built for that scope; TTL reaps them.
type Versioned struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewVersioned instantiates the cache helper. A nil client disables caching.
func NewVersioned(client *redis.Client, prefix string, ttl time.Duration) *Versioned {
	return &Versioned{client: client, prefix: prefix, ttl: ttl}
}

func (c *Versioned) versionKey(scope string) string {
	return c.prefix + ":version:" + scope
}

// Version returns the current version for scope, initialising when missing.
func (c *Versioned) Version(ctx context.Context, scope string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := c.versionKey(scope)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX so concurrent initialisers agree on 1
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, key, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key for scope with its current version.
func (c *Versioned) BuildKey(ctx context.Context, scope string, parts ...string) (string, error) {
	joined := strings.Join(append([]string{c.prefixOrDefault(), scope}, parts...), ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx, scope)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", joined, ver), nil
}

func (c *Versioned) prefixOrDefault() string {
	if c == nil || c.prefix == "" {
		return "cache"
	}
	return c.prefix
}

// FetchJSON loads a cached value or populates it using the loader. hit reports
// whether the value came from Redis.
func (c *Versioned) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) (hit bool, err error) {
	if loader == nil {
		return false, errors.New("cache: loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return true, json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return false, err
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return false, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if c != nil && c.client != nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return false, err
		}
	}
	return false, json.Unmarshal(raw, dest)
}

// Bump invalidates scope by incrementing its version and publishing an event.
func (c *Versioned) Bump(ctx context.Context, scope string) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, c.versionKey(scope)).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, BumpChannel, scope+":"+strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation calls onBump for every bump published by any process
// until ctx is cancelled. The returned channel closes when the listener exits.
func (c *Versioned) ListenForInvalidation(ctx context.Context, onBump func(scope string, version int64)) <-chan struct{} {
	done := make(chan struct{})
	if c == nil || c.client == nil {
		close(done)
		return done
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	go func() {
		defer close(done)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				idx := strings.LastIndex(msg.Payload, ":")
				if idx <= 0 {
					continue
				}
				ver, err := strconv.ParseInt(msg.Payload[idx+1:], 10, 64)
				if err != nil {
					continue
				}
				if onBump != nil {
					onBump(msg.Payload[:idx], ver)
				}
			}
		}
	}()
	return done
}
