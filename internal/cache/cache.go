// Package cache предоставляет кэш снимков справочника: пустой или на Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Драйверы кэша.
const (
	DriverNoop  = "noop"
	DriverRedis = "redis"
)

// Store описывает обобщённый кэш байтовых значений.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss означает отсутствие ключа.
var ErrCacheMiss = errors.New("cache miss")

// Options содержит параметры подключения.
type Options struct {
	Driver     string
	RedisAddr  string
	DefaultTTL time.Duration
}

// NewStore создаёт кэш выбранного драйвера. Для Redis проверяет соединение.
func NewStore(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch opts.Driver {
	case "", DriverNoop:
		logger.Info("cache disabled; using noop store")
		return NoopStore{}, nil
	case DriverRedis:
		client := goredis.NewClient(&goredis.Options{Addr: opts.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("redis cache connected", zap.String("addr", opts.RedisAddr))
		return &redisStore{client: client, defaultTTL: opts.DefaultTTL}, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", opts.Driver)
	}
}

// NoopStore ничего не хранит, любое чтение даёт промах.
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

func (NoopStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NoopStore) Delete(context.Context, string) error {
	return nil
}

func (NoopStore) Close() error {
	return nil
}

type redisStore struct {
	client     *goredis.Client
	defaultTTL time.Duration
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheMiss
	}
	res, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errors.New("cache key is required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
