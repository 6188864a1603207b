package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goEnroll/jwt"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "ge"
	defaultSlot   = "default"
)

// RedisStore keeps the session token in a single Redis key. When the token is a
// JWT, the key expires together with the token's exp claim, so an expired token
// is never returned.
type RedisStore struct {
	redis  redis.UniversalClient
	key    string
	maxTTL time.Duration
	now    func() time.Time
}

// NewRedisStore creates a [RedisStore] writing to "<prefix>:tok:<slot>". Several
// clients (devices, test users) can share one Redis by using distinct slots.
// maxTTL caps the key lifetime; zero leaves opaque tokens without expiry.
func NewRedisStore(redisClient redis.UniversalClient, prefix, slot string, maxTTL time.Duration) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		slot = defaultSlot
	}
	if maxTTL < 0 {
		maxTTL = 0
	}
	return &RedisStore{
		redis:  redisClient,
		key:    prefix + ":tok:" + slot,
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

// Key returns the Redis key holding the token.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.redis.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, nil
}

// SetToken stores token, replacing any previous one.
func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	ttl := s.maxTTL
	if info, err := jwt.Inspect(token); err == nil && info.HasExpiry() {
		remaining := info.TTL(s.now())
		if remaining <= 0 {
			if err := s.ClearToken(ctx); err != nil {
				return err
			}
			return ErrTokenExpired
		}
		if ttl == 0 || remaining < ttl {
			ttl = remaining
		}
	}

	if err := s.redis.Set(ctx, s.key, token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ClearToken deletes the key. Deleting a missing key is not an error.
func (s *RedisStore) ClearToken(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
