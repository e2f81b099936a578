package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisCallTimeout = 2 * time.Second

// RedisStore is the distributed Store backend. Claims are written with
// SET NX plus a TTL, so acquisition is a single atomic round trip and
// expired records disappear without any garbage collection.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig carries connection parameters for the shared Redis
// instance. URL takes precedence over the individual fields.
type RedisConfig struct {
	URL            string
	Host           string
	Port           int
	DB             int
	Password       string
	MaxConnections int
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if cfg.MaxConnections > 0 {
		opts.PoolSize = cfg.MaxConnections
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Acquire claims key via SET NX. On a lost race the stored timestamp is
// read back so the caller can compute the remaining cooldown. If the key
// expires between the two commands, the claim is retried once.
func (s *RedisStore) Acquire(ctx context.Context, key string, now time.Time, ttl time.Duration) (bool, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	for attempt := 0; attempt < 2; attempt++ {
		set, err := s.client.SetNX(ctx, key, now.UnixMilli(), ttl).Result()
		if err != nil {
			return false, time.Time{}, err
		}
		if set {
			return true, time.Time{}, nil
		}

		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			// Expired between SET NX and GET; try to claim again.
			continue
		}
		if err != nil {
			return false, time.Time{}, err
		}
		return false, parseClaim(val), nil
	}

	// Lost two claim races back to back; report a fresh denial.
	return false, now, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return parseClaim(val), true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func parseClaim(val string) time.Time {
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

var _ Store = (*RedisStore)(nil)
