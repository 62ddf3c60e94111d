package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenExpiryBuffer is how long before expiry a cached token is treated as stale.
const TokenExpiryBuffer = 60 * time.Second

type TokenCache struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (tc *TokenCache) IsValid(now time.Time) bool {
	if tc == nil || tc.Token == "" {
		return false
	}
	return now.Add(TokenExpiryBuffer).Before(tc.ExpiresAt)
}

type TokenStore interface {
	GetToken(ctx context.Context) (*TokenCache, error)
	SetToken(ctx context.Context, token string, ttl time.Duration) error
}

// RedisTokenCache shares a service token across replicas.
type RedisTokenCache struct {
	Client *redis.Client
	Key    string
}

func NewRedisTokenCache(client *redis.Client, key string) *RedisTokenCache {
	return &RedisTokenCache{Client: client, Key: key}
}

func (c *RedisTokenCache) GetToken(ctx context.Context) (*TokenCache, error) {
	raw, err := c.Client.Get(ctx, c.Key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token from Redis: %w", err)
	}

	var tc TokenCache
	if err := json.Unmarshal([]byte(raw), &tc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token cache: %w", err)
	}
	if !tc.IsValid(time.Now()) {
		return nil, nil
	}
	return &tc, nil
}

func (c *RedisTokenCache) SetToken(ctx context.Context, token string, ttl time.Duration) error {
	payload, err := json.Marshal(TokenCache{Token: token, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}
	if err := c.Client.Set(ctx, c.Key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token in Redis: %w", err)
	}
	return nil
}

// MemoryTokenCache is used when no Redis is configured.
type MemoryTokenCache struct {
	mu    sync.Mutex
	entry *TokenCache
}

func (c *MemoryTokenCache) GetToken(_ context.Context) (*TokenCache, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.entry.IsValid(time.Now()) {
		return nil, nil
	}
	cp := *c.entry
	return &cp, nil
}

func (c *MemoryTokenCache) SetToken(_ context.Context, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &TokenCache{Token: token, ExpiresAt: time.Now().Add(ttl)}
	return nil
}
