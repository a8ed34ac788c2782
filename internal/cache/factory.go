package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Backend    string // "memory" or "redis"
	TTL        time.Duration
	MaxEntries int
	Prefix     string
}

func New(cfg Config, redisClient *redis.Client) Cache {
	switch cfg.Backend {
	case "redis":
		return NewRedisCache(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
			TTL:    cfg.TTL,
		})
	default:
		return NewMemoryCache(cfg.TTL, cfg.MaxEntries)
	}
}
