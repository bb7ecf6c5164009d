package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/commercedash/backend/internal/infrastructure/config"
)

// runLockKey is the shared key guarding sync runs.
const runLockKey = "commerce:sync:running"

// defaultRunLockTTL bounds how long a crashed run can block the next one.
const defaultRunLockTTL = 2 * time.Hour

// RunLock guards against overlapping sync runs. One run holds the lock for
// its whole duration; a second trigger observes the held lock and is
// rejected instead of queued.
type RunLock interface {
	// TryAcquire returns true when the caller now holds the lock, false
	// when another run holds it.
	TryAcquire(ctx context.Context) (bool, error)
	// Release frees the lock. Call only after a successful TryAcquire.
	Release(ctx context.Context) error
}

// RedisRunLock implements RunLock on Redis, for deployments where multiple
// instances may trigger syncs. The TTL is a crash guard, not a lease: a
// healthy run releases explicitly.
type RedisRunLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisRunLock connects to Redis and returns a distributed run lock.
func NewRedisRunLock(cfg *config.RedisConfig) (*RedisRunLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRunLockWithClient(client, runLockKey, defaultRunLockTTL), nil
}

// NewRedisRunLockWithClient creates a run lock over an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisRunLockWithClient(client *redis.Client, key string, ttl time.Duration) *RedisRunLock {
	if key == "" {
		key = runLockKey
	}
	if ttl <= 0 {
		ttl = defaultRunLockTTL
	}
	return &RedisRunLock{client: client, key: key, ttl: ttl}
}

// TryAcquire attempts to take the lock with a single atomic SETNX.
func (l *RedisRunLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return ok, nil
}

// Release deletes the lock key.
func (l *RedisRunLock) Release(ctx context.Context) error {
	if err := l.client.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (l *RedisRunLock) Close() error {
	return l.client.Close()
}

var _ RunLock = (*RedisRunLock)(nil)
