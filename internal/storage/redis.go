package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessions is a SessionBackend on Redis. Every write refreshes the TTL
// of the written key, so idle sessions disappear on their own.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

func (r *RedisSessions) Get(ctx context.Context, sid, name string) (string, bool, error) {
	v, err := r.client.Get(ctx, sessionKey(sid, name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return v, true, nil
}

func (r *RedisSessions) Set(ctx context.Context, sid, name, value string) error {
	if err := r.client.Set(ctx, sessionKey(sid, name), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisSessions) Remove(ctx context.Context, sid, name string) error {
	if err := r.client.Del(ctx, sessionKey(sid, name)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisSessions) Touch(ctx context.Context, sid string, names ...string) (int, error) {
	pipe := r.client.Pipeline()
	cmds := make([]*redis.BoolCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.Expire(ctx, sessionKey(sid, name), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis expire failed: %w", err)
	}
	n := 0
	for _, cmd := range cmds {
		if cmd.Val() {
			n++
		}
	}
	return n, nil
}

func sessionKey(sid, name string) string {
	return fmt.Sprintf("session:%s:%s", sid, name)
}
