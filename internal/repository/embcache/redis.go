package embcache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// Compile-time check: RedisKV implements KV.
var _ KV = (*RedisKV)(nil)

// RedisConfig holds connection parameters for the cache backend.
type RedisConfig struct {
	Addrs    []string
	Password string
	TTL      time.Duration
}

// RedisKV is a rueidis-backed KV with a per-entry TTL.
type RedisKV struct {
	client rueidis.Client
	ttl    time.Duration
}

// NewRedisKV connects to Redis for embedding cache storage.
func NewRedisKV(cfg RedisConfig) (*RedisKV, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &RedisKV{client: client, ttl: cfg.TTL}, nil
}

// Get retrieves a value by key.
func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a value with the configured TTL.
func (s *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	var cmd rueidis.Completed
	if s.ttl > 0 {
		cmd = s.client.B().Set().Key(key).Value(string(value)).Ex(s.ttl).Build()
	} else {
		cmd = s.client.B().Set().Key(key).Value(string(value)).Build()
	}
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisKV) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *RedisKV) Close() {
	s.client.Close()
}
