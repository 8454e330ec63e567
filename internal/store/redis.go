package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisKey is used when no key is configured.
const DefaultRedisKey = "prayer-widget:state"

// redisClient is the subset of *redis.Client the store uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis keeps the snapshot under a single key so several widget processes
// can share one location and schedule.
type Redis struct {
	client redisClient
	key    string
	logger zerolog.Logger
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(addr, key string, logger zerolog.Logger) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis backend requires an address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}

	logger.Info().Str("addr", addr).Msg("redis state store initialized")
	return newRedis(client, key, logger), nil
}

func newRedis(client redisClient, key string, logger zerolog.Logger) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{
		client: client,
		key:    key,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// Load reads the snapshot.
func (r *Redis) Load(ctx context.Context) (*Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", r.key, err)
	}
	return &s, nil
}

// Save writes the snapshot without expiry.
func (r *Redis) Save(ctx context.Context, s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	r.logger.Debug().Str("key", r.key).Msg("state saved")
	return nil
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
