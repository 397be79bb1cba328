package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liquorledger/backend/internal/domain/shared"
	"github.com/liquorledger/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces Idempotency-Key entries in Redis
const DefaultKeyPrefix = "liquor:idempotency:"

// Circuit breaker settings for Redis calls
const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// ErrStoreUnavailable is returned without calling Redis while the breaker is open
var ErrStoreUnavailable = errors.New("idempotency store unavailable")

// RedisIdempotencyStore implements shared.IdempotencyStore using Redis.
// Several API instances behind a load balancer share the same keys. Calls go
// through a circuit breaker so a Redis outage fails requests fast.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection
func NewRedisIdempotencyStore(cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisIdempotencyStoreWithClient(client, DefaultKeyPrefix), nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	s := &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    zap.NewNop(),
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-idempotency",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return s
}

// Claim sets the key with SETNX so exactly one request wins
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := s.execute(func() (interface{}, error) {
		return s.client.SetNX(ctx, s.key(key), "1", ttl).Result()
	})
	if err != nil {
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return claimed.(bool), nil
}

// Seen reports whether the key exists
func (s *RedisIdempotencyStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.execute(func() (interface{}, error) {
		return s.client.Exists(ctx, s.key(key)).Result()
	})
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return n.(int64) > 0, nil
}

// Release deletes the key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, s.key(key)).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// BreakerState reports the circuit breaker state
func (s *RedisIdempotencyStore) BreakerState() gobreaker.State {
	return s.breaker.State()
}

// Close closes the Redis connection
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client, e.g. for health checks
func (s *RedisIdempotencyStore) GetClient() *redis.Client {
	return s.client
}

func (s *RedisIdempotencyStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return result, err
}

func (s *RedisIdempotencyStore) key(key string) string {
	return s.keyPrefix + key
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
