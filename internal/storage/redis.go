package storage

import (
	"context"
	"errors"
	"time"

	"modelctl/internal/core"

	"github.com/redis/go-redis/v9"
)

const defaultRedisOpTimeout = 3 * time.Second

// RedisStorage keeps the stats snapshot under a single Redis key.
type RedisStorage struct {
	client    *redis.Client
	key       string
	opTimeout time.Duration
}

// RedisStorageConfig Redis storage config
type RedisStorageConfig struct {
	URL string
	// Key defaults to core.StatsRedisKey.
	Key string
	// OpTimeout bounds each Redis command.
	OpTimeout time.Duration
}

// NewRedisStorage connects to config.URL and verifies the server answers.
func NewRedisStorage(config RedisStorageConfig) (*RedisStorage, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, err
	}
	return newRedisStorageWithClient(redis.NewClient(opts), config)
}

func newRedisStorageWithClient(client *redis.Client, config RedisStorageConfig) (*RedisStorage, error) {
	if config.Key == "" {
		config.Key = core.StatsRedisKey
	}
	if config.OpTimeout <= 0 {
		config.OpTimeout = defaultRedisOpTimeout
	}
	rs := &RedisStorage{client: client, key: config.Key, opTimeout: config.OpTimeout}

	ctx, cancel := rs.opContext()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return rs, nil
}

func (rs *RedisStorage) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rs.opTimeout)
}

func (rs *RedisStorage) SaveStats(stats *core.RequestStats) error {
	data, err := encodeStats(stats)
	if err != nil {
		return err
	}
	ctx, cancel := rs.opContext()
	defer cancel()
	return rs.client.Set(ctx, rs.key, data, 0).Err()
}

func (rs *RedisStorage) LoadStats() (*core.RequestStats, error) {
	ctx, cancel := rs.opContext()
	defer cancel()
	val, err := rs.client.Get(ctx, rs.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return emptyStats(), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStats(val)
}

func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}
