package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList records logged-out session token ids until they expire.
type RevocationList interface {
	// Revoke adds a token id. ttl should be the token's remaining lifetime.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationList implements RevocationList using Redis
type RedisRevocationList struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisRevocationList connects to Redis and verifies the connection.
func NewRedisRevocationList(ctx context.Context, cfg RedisConfig) (*RedisRevocationList, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for session revocation: %w", err)
	}

	return NewRedisRevocationListWithClient(client), nil
}

// NewRedisRevocationListWithClient wraps an existing Redis client.
func NewRedisRevocationListWithClient(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client, keyPrefix: "inventory:session:revoked:"}
}

func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return n > 0, nil
}

// Close closes the Redis client
func (r *RedisRevocationList) Close() error {
	return r.client.Close()
}

// MemoryRevocationList keeps revoked ids in process memory. Revocations are
// lost on restart and not shared between instances.
type MemoryRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiration
	now     func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{revoked: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = m.now().Add(ttl)
	return nil
}

func (m *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiration, ok := m.revoked[jti]
	if !ok {
		return false, nil
	}
	if m.now().After(expiration) {
		delete(m.revoked, jti)
		return false, nil
	}
	return true, nil
}

// Purge drops expired ids and returns how many were removed.
func (m *MemoryRevocationList) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for jti, expiration := range m.revoked {
		if now.After(expiration) {
			delete(m.revoked, jti)
			removed++
		}
	}
	return removed
}

var (
	_ RevocationList = (*RedisRevocationList)(nil)
	_ RevocationList = (*MemoryRevocationList)(nil)
)
