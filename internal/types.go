package internal

import (
	"context"

	"sjsage522/rentalworker/config"
	"sjsage522/rentalworker/logger"
	apperrors "sjsage522/rentalworker/pkg/errors"
	"sjsage522/rentalworker/services/cache"
	"sjsage522/rentalworker/services/publisher"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Cache cache.CacheService
	// Publisher is nil when no Redis address is configured
	Publisher publisher.Publisher
}

// NewDependencies builds the services named in cfg. Redis is checked with a
// ping so a bad address fails at startup rather than after the first city.
func NewDependencies(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Cache: cache.New(cfg.MemcacheAddr),
	}
	if cfg.MemcacheAddr != "" {
		log.Info().Str("addr", cfg.MemcacheAddr).Msg("Using memcache for rate-limit blocks")
	} else {
		log.Info().Msg("Using in-process cache for rate-limit blocks")
	}

	if cfg.RedisAddr == "" {
		return deps, nil
	}
	redisPublisher := publisher.NewRedisPublisher(
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLength,
	)
	if err := redisPublisher.Ping(ctx); err != nil {
		redisPublisher.Close()
		return nil, apperrors.NewPublisher(cfg.RedisAddr, "redis is unreachable", err)
	}
	deps.Publisher = redisPublisher

	log.Info().
		Str("addr", cfg.RedisAddr).
		Int("db", cfg.RedisDB).
		Str("stream", cfg.RedisStream).
		Msg("Connected to Redis")

	return deps, nil
}

// Close closes all services
func (d *Dependencies) Close() error {
	if d.Publisher != nil {
		return d.Publisher.Close()
	}
	return nil
}
