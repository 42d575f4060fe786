package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis for listing caches, counters and token revocation. Every
// method tolerates a nil Redis client: reads miss, writes are dropped, and
// revocations are kept in process memory.
type Cache struct {
	rdb *redis.Client

	mu      sync.Mutex
	revoked map[string]time.Time
	cutoffs map[string]cutoff
}

// cutoff invalidates every token of a user issued before at.
type cutoff struct {
	at  time.Time
	exp time.Time
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb, revoked: make(map[string]time.Time), cutoffs: make(map[string]cutoff)}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return errors.New("redis not configured")
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) GetJSON(ctx context.Context, key string, dst any) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("cache get failed", "key", key, "err", err)
		}
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		slog.Warn("cache set failed", "key", key, "err", err)
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("cache delete failed", "keys", keys, "err", err)
	}
}

// Version returns the integer stored at key, 0 when absent.
func (c *Cache) Version(ctx context.Context, key string) int64 {
	if !c.Enabled() {
		return 0
	}
	v, err := c.rdb.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

// Bump increments the integer at key, orphaning every cache entry keyed on
// the previous value.
func (c *Cache) Bump(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Incr(ctx, key).Err(); err != nil {
		slog.Warn("cache bump failed", "key", key, "err", err)
	}
}

// IncrWindow counts one hit against key in a fixed window. It returns the
// count so far and the time left in the window.
func (c *Cache) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if !c.Enabled() {
		return 0, 0, errors.New("redis not configured")
	}
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return n, window, err
		}
		return n, window, nil
	}
	left, err := c.rdb.TTL(ctx, key).Result()
	if err != nil || left < 0 {
		// A key that lost its expiry would never reset.
		c.rdb.Expire(ctx, key, window)
		left = window
	}
	return n, left, nil
}

// Revoke marks a token id as unusable until ttl elapses.
func (c *Cache) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if c.Enabled() {
		return c.rdb.Set(ctx, revokedKey(jti), "1", ttl).Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for id, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, id)
		}
	}
	c.revoked[jti] = now.Add(ttl)
	return nil
}

// RevokeUser invalidates every token issued to userID until now. ttl should
// be the token lifetime; older tokens expire on their own.
func (c *Cache) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := time.Now()
	if c.Enabled() {
		return c.rdb.Set(ctx, userRevokedKey(userID), strconv.FormatInt(now.UnixNano(), 10), ttl).Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, co := range c.cutoffs {
		if now.After(co.exp) {
			delete(c.cutoffs, id)
		}
	}
	c.cutoffs[userID] = cutoff{at: now, exp: now.Add(ttl)}
	return nil
}

// IsRevoked reports whether the token was logged out, or issued before its
// user's tokens were last revoked. A Redis failure fails open.
func (c *Cache) IsRevoked(ctx context.Context, claims Claims) bool {
	if c.Enabled() {
		vals, err := c.rdb.MGet(ctx, revokedKey(claims.JTI), userRevokedKey(claims.UserID)).Result()
		if err != nil {
			slog.Warn("revocation check failed", "err", err)
			return false
		}
		if vals[0] != nil {
			return true
		}
		raw, ok := vals[1].(string)
		if !ok {
			return false
		}
		ns, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return false
		}
		return claims.IssuedAt.Before(time.Unix(0, ns))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if exp, ok := c.revoked[claims.JTI]; ok && now.Before(exp) {
		return true
	}
	co, ok := c.cutoffs[claims.UserID]
	return ok && now.Before(co.exp) && claims.IssuedAt.Before(co.at)
}

func revokedKey(jti string) string         { return "auth:revoked:" + jti }
func userRevokedKey(userID string) string { return "auth:user-revoked:" + userID }
