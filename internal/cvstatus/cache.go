package cvstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/giveawaysclub/sgtracker/internal/models"
)

type MemoryCache struct {
	mu    sync.RWMutex
	games map[string]*models.BundleGame
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{games: make(map[string]*models.BundleGame)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.BundleGame, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	game, ok := c.games[key]
	return game, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, game *models.BundleGame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games[key] = game
	return nil
}

const (
	redisKeyPrefix = "sgtracker:bundle:"
	redisTTL       = 7 * 24 * time.Hour
)

// RedisCache keeps bundle lookups across runs. Values are JSON; "null" marks
// a game that is not bundled.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{client: client, ttl: redisTTL}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.BundleGame, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var game *models.BundleGame
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return game, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, game *models.BundleGame) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err()
}
