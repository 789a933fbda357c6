// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// ConnectAttempts bounds the ping retries made when opening. Zero means 5.
	ConnectAttempts uint64
	// ConnectBackoff is the first retry delay, doubled per attempt. Zero means 100ms.
	ConnectBackoff time.Duration
}

// RedisStore keeps values in Redis so CLI invocations on different hosts
// or homes can share one login. The web front end keeps sessions in
// cookies and does not use it. Keys are namespaced by KeyPrefix.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to Redis and verifies the connection with PING,
// retrying with exponential backoff.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, oops.Code("SESSION_REDIS_CONFIG").In("session").Errorf("redis address is empty")
	}
	attempts := opts.ConnectAttempts
	if attempts == 0 {
		attempts = 5
	}
	backoff := opts.ConnectBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	b := retry.WithMaxRetries(attempts-1, retry.NewExponential(backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, oops.Code("SESSION_REDIS_UNAVAILABLE").In("session").
			With("addr", opts.Addr).
			Wrapf(err, "connect to redis")
	}

	return NewRedisStore(client, opts.KeyPrefix), nil
}

// NewRedisStore wraps an existing client. The store owns client and closes
// it on Close.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", notFound("redis", key)
	}
	if err != nil {
		return "", oops.Code("SESSION_READ_FAILED").In("session").With("backend", "redis").With("key", key).
			Wrapf(err, "redis get")
	}
	return v, nil
}

// Set implements Store. Values do not expire.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").In("session").With("backend", "redis").With("key", key).
			Wrapf(err, "redis set")
	}
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").In("session").With("backend", "redis").With("key", key).
			Wrapf(err, "redis del")
	}
	return nil
}

// Close implements io.Closer.
func (r *RedisStore) Close() error {
	//nolint:wrapcheck // close error is passed through unchanged
	return r.client.Close()
}
