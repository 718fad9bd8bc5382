package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Allmight-456/event-management-go/pkg/config"
	"github.com/Allmight-456/event-management-go/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Custom error types
var (
	ErrCacheNotFound = errors.New("cache: key not found")
	ErrInvalidConfig = errors.New("cache: invalid configuration")
)

// InvalidationChannel carries event mutation notices so other processes can
// drop stale reads.
const InvalidationChannel = "events:invalidate"

const keyPrefix = "evm:"

// InvalidationMessage is published on every event mutation.
type InvalidationMessage struct {
	EventID   uuid.UUID `json:"event_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// RedisClient wraps the redis connection used for read caching and
// cross-process invalidation.
type RedisClient struct {
	client     *redis.Client
	defaultTTL time.Duration
	logger     *logger.Logger
}

// NewRedisClient creates a redis client from project configuration
func NewRedisClient(cfg *config.Config, log *logger.Logger) (*RedisClient, error) {
	if cfg.Redis.Host == "" {
		return nil, ErrInvalidConfig
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: failed to connect to redis: %w", err)
	}

	return &RedisClient{
		client:     client,
		defaultTTL: 30 * time.Minute,
		logger:     log,
	}, nil
}

// GetJSON reads a cached value into dest. Returns ErrCacheNotFound on miss.
func (c *RedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetJSON stores a value under the default TTL.
func (c *RedisClient) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+key, data, c.defaultTTL).Err()
}

// Delete removes cached keys.
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	return c.client.Del(ctx, prefixed...).Err()
}

// InvalidateEvent drops cached entries for an event and publishes an
// invalidation notice.
func (c *RedisClient) InvalidateEvent(ctx context.Context, eventID uuid.UUID, action string) error {
	if err := c.Delete(ctx, EventKey(eventID), HistoryKey(eventID)); err != nil {
		c.logger.Warn("cache delete failed", zap.Error(err))
	}

	msg := InvalidationMessage{
		EventID:   eventID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, InvalidationChannel, payload).Err()
}

// Close releases the underlying connection pool.
func (c *RedisClient) Close() error {
	return c.client.Close()
}

// EventKey is the cache key for a single event row.
func EventKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s", eventID)
}

// HistoryKey is the cache key for an event's version history.
func HistoryKey(eventID uuid.UUID) string {
	return fmt.Sprintf("history:%s", eventID)
}
