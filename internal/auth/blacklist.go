package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/redis/go-redis/v9"
)

// Blacklist records revoked token ids until the token would have expired.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func revokeTTL(exp time.Time, now time.Time) time.Duration {
	ttl := exp.Sub(now)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return ttl
}

// RedisBlacklist stores revocations in Redis so every instance sees them.
type RedisBlacklist struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisBlacklist(rdb redis.UniversalClient, prefix string) *RedisBlacklist {
	if prefix == "" {
		prefix = "jti:"
	}
	return &RedisBlacklist{rdb: rdb, prefix: prefix}
}

func (b *RedisBlacklist) key(jti string) string { return b.prefix + jti }

func (b *RedisBlacklist) Revoke(ctx context.Context, jti string, exp time.Time) error {
	if err := b.rdb.SetNX(ctx, b.key(jti), "1", revokeTTL(exp, time.Now())).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.rdb.Exists(ctx, b.key(jti)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("auth: check revocation: %w", err)
	}
	return n > 0, nil
}

// Ping checks the Redis connection.
func (b *RedisBlacklist) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// MemoryBlacklist keeps revocations in process. It is used when Redis is not
// configured; revocations do not survive a restart.
type MemoryBlacklist struct {
	entries *xsync.MapOf[string, time.Time]
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{entries: xsync.NewMapOf[string, time.Time](), now: time.Now}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, jti string, exp time.Time) error {
	now := b.now()
	b.entries.Store(jti, now.Add(revokeTTL(exp, now)))
	b.sweep(now)
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	until, ok := b.entries.Load(jti)
	if !ok {
		return false, nil
	}
	if !b.now().Before(until) {
		b.entries.Delete(jti)
		return false, nil
	}
	return true, nil
}

// sweep drops entries whose tokens have expired anyway.
func (b *MemoryBlacklist) sweep(now time.Time) {
	b.entries.Range(func(jti string, until time.Time) bool {
		if !now.Before(until) {
			b.entries.Delete(jti)
		}
		return true
	})
}
