package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"photo-search/domain"
)

const keyPrefix = "photo-search:ingest:"

// Config carries the Redis connection settings and how long transient
// statuses are remembered.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisRegistry implements domain.StatusRegistry. Entries carry a TTL so a
// stuck "queued" marker eventually expires instead of lying forever.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry connects to Redis and verifies the connection.
func NewRedisRegistry(ctx context.Context, cfg Config) (*RedisRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisRegistry{client: client, ttl: ttl}, nil
}

func statusKey(objectKey string) string {
	return keyPrefix + objectKey
}

func (r *RedisRegistry) MarkQueued(ctx context.Context, key string) error {
	return r.client.Set(ctx, statusKey(key), string(domain.StatusQueued), r.ttl).Err()
}

func (r *RedisRegistry) MarkDeadLettered(ctx context.Context, key, reason string) error {
	pipe := r.client.Pipeline()
	pipe.Set(ctx, statusKey(key), string(domain.StatusDeadLettered), r.ttl)
	pipe.Set(ctx, statusKey(key)+":reason", reason, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRegistry) Clear(ctx context.Context, key string) error {
	return r.client.Del(ctx, statusKey(key), statusKey(key)+":reason").Err()
}

// Lookup returns the transient status for a key. An absent entry means the
// key was never queued or its record has expired.
func (r *RedisRegistry) Lookup(ctx context.Context, key string) (domain.IngestStatus, error) {
	value, err := r.client.Get(ctx, statusKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.StatusAbsent, nil
	}
	if err != nil {
		return domain.StatusAbsent, fmt.Errorf("status lookup failed: %w", err)
	}
	switch domain.IngestStatus(value) {
	case domain.StatusQueued, domain.StatusDeadLettered:
		return domain.IngestStatus(value), nil
	default:
		return domain.StatusAbsent, nil
	}
}

// Close releases the underlying connection pool.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

var _ domain.StatusRegistry = (*RedisRegistry)(nil)
