// File: utils/cache.go
package utils

import (
	"context"
	"time"

	"agendazap/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheClient is the generic cache client. It stays nil when REDIS_ADDR is
// not configured; callers treat a nil client as "cache disabled".
var CacheClient *redis.Client

// InitRedis initializes the Redis cache client. Redis is optional here: the
// gateway only uses it for best-effort webhook dedupe and charge idempotency
// keys, so a missing or unreachable Redis downgrades those features instead
// of aborting startup.
func InitRedis() {
	if config.AppConfig.RedisAddr == "" {
		GetLogger().Info("Redis not configured, message dedupe disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		GetLogger().Warn("Failed to connect to Redis, message dedupe disabled", zap.Error(err))
		return
	}
	CacheClient = client
}

// GetCacheClient returns the generic cache client, possibly nil.
func GetCacheClient() *redis.Client {
	return CacheClient
}

// SeenMessage records a bridge message id and reports whether it had already
// been processed. With no cache available every message counts as new
// (duplicate webhook deliveries are an accepted risk, not a correctness bug).
func SeenMessage(ctx context.Context, tenantID, messageID string) bool {
	if CacheClient == nil || messageID == "" {
		return false
	}
	key := "wh:seen:" + tenantID + ":" + messageID
	ok, err := CacheClient.SetNX(ctx, key, 1, 24*time.Hour).Result()
	if err != nil {
		GetLogger().Warn("Redis dedupe check failed", zap.Error(err))
		return false
	}
	return !ok
}
