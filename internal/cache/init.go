package cache

import (
	"github.com/clinicore/clinicore/internal/config"
	"github.com/clinicore/clinicore/internal/logger"
)

// NewCache selects the cache backend from config
func NewCache(cfg *config.Configuration, logger *logger.Logger) Cache {
	switch cfg.Cache.Backend {
	case "redis":
		return NewRedisCache(cfg, logger)
	default:
		return NewInMemoryCache(cfg)
	}
}
