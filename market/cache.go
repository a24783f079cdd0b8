package market

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cache holds recently observed prices per symbol.
type Cache interface {
	Get(ctx context.Context, symbol string) (decimal.Decimal, bool)
	Set(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration)
}

// RedisCache stores prices as strings under price:<SYMBOL>.
type RedisCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisCache(rdb *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, logger: logger.Named("RedisPriceCache")}
}

func priceKey(symbol string) string { return fmt.Sprintf("price:%s", symbol) }

func (c *RedisCache) Get(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	s, err := c.rdb.Get(ctx, priceKey(symbol)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Failed to read cached price", zap.String("symbol", symbol), zap.Error(err))
		}
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		c.logger.Warn("Discarding malformed cached price", zap.String("symbol", symbol), zap.String("value", s))
		return decimal.Zero, false
	}
	return price, true
}

func (c *RedisCache) Set(ctx context.Context, symbol string, price decimal.Decimal, ttl time.Duration) {
	if err := c.rdb.Set(ctx, priceKey(symbol), price.String(), ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache price", zap.String("symbol", symbol), zap.Error(err))
	}
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	c *cache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: cache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, symbol string) (decimal.Decimal, bool) {
	v, ok := m.c.Get(symbol)
	if !ok {
		return decimal.Zero, false
	}
	price, ok := v.(decimal.Decimal)
	return price, ok
}

func (m *MemoryCache) Set(_ context.Context, symbol string, price decimal.Decimal, ttl time.Duration) {
	m.c.Set(symbol, price, ttl)
}
