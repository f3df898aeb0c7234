package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisMirror keeps the product list as a JSON string under one Redis key.
// The key never expires.
type RedisMirror struct {
	client *redis.Client
	key    string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisMirror creates a mirror stored under key.
func NewRedisMirror(client *redis.Client, key string) *RedisMirror {
	return &RedisMirror{client: client, key: key}
}

func (m *RedisMirror) Load(ctx context.Context) ([]models.Product, bool, error) {
	val, err := m.client.Get(ctx, m.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.Product{}, false, nil
		}
		return nil, false, fmt.Errorf("failed to read mirror key %s: %w", m.key, err)
	}
	products, err := decodeMirror(val)
	return products, true, err
}

func (m *RedisMirror) Save(ctx context.Context, products []models.Product) error {
	payload, err := encodeMirror(products)
	if err != nil {
		return err
	}
	if err := m.client.Set(ctx, m.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write mirror key %s: %w", m.key, err)
	}
	return nil
}
