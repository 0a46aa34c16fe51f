package cache

import (
	"fmt"

	"shorts-publisher/infrastructure/configuration"
	"shorts-publisher/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil when no host is configured.
func NewRedisClient(cfg configuration.RedisClient) *redis.Client {
	if cfg.Host == "" {
		return nil
	}
	port := cfg.Port
	if port == "" {
		port = "6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, port),
		Username: cfg.Username,
		Password: cfg.Password,
	})
	logger.GetLogger().WithField("addr", rdb.Options().Addr).Info("Redis client initialized")
	return rdb
}
