package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"polnischlernen/internal/logging"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss wird geliefert, wenn ein Schlüssel fehlt oder abgelaufen ist
var ErrCacheMiss = errors.New("cache: schlüssel nicht gefunden")

// CacheService speichert JSON-kodierte Werte mit Ablaufzeit.
// ttl <= 0 bedeutet ohne Ablauf.
type CacheService interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string, dest any) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// NewRedisClient baut einen Client aus einer redis:// URL und prüft die Verbindung
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis-url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis-verbindung fehlgeschlagen: %w", err)
	}
	return client, nil
}

type redisCache struct {
	client *redis.Client
	logger logging.Logger
}

func NewRedisCache(client *redis.Client, logger logging.Logger) CacheService {
	return &redisCache{
		client: client,
		logger: logger.With("component", "redis-cache"),
	}
}

func (r *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache-wert kodieren: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	r.logger.Debug("Schlüssel gelöscht", "pattern", pattern, "count", deleted)
	return nil
}
