package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/config"
)

// Redis wraps the go-redis client. A Redis without client is valid and disables every feature
// built on it.
type Redis struct {
	Client *redis.Client
	owner  string
}

// releaseScript deletes a lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// NewRedis connects to Redis using the provided configuration. An empty address disables Redis.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; live notifications and run locks disabled")
		return &Redis{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}

	return &Redis{Client: client, owner: uuid.NewString()}
}

// Enabled reports whether a client is configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// AcquireLock takes the named lock for ttl. It reports false when another process holds it.
func (r *Redis) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !r.Enabled() {
		return true, nil
	}
	return r.Client.SetNX(ctx, key, r.owner, ttl).Result()
}

// ReleaseLock frees a lock taken by AcquireLock on this client.
func (r *Redis) ReleaseLock(ctx context.Context, key string) error {
	if !r.Enabled() {
		return nil
	}
	return releaseScript.Run(ctx, r.Client, []string{key}, r.owner).Err()
}
