package rates

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ordermesh/ordermesh/pkg/util"
)

// MemoryCache is a TTL cache over a Provider for nodes running without
// redis. Stale entries are refreshed lazily on read.
type MemoryCache struct {
	Source Provider
	TTL    time.Duration
	Clock  util.Clock

	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	price   float64
	fetched time.Time
}

func NewMemoryCache(source Provider, ttl time.Duration, clock util.Clock) *MemoryCache {
	return &MemoryCache{
		Source:  source,
		TTL:     ttl,
		Clock:   clock,
		entries: make(map[string]memEntry),
	}
}

func (c *MemoryCache) MarketPrice(ctx context.Context, fiat string) (float64, error) {
	c.mu.Lock()
	e, ok := c.entries[fiat]
	c.mu.Unlock()
	if ok && c.Clock.Now().Sub(e.fetched) < c.TTL {
		return e.price, nil
	}

	price, err := c.Source.MarketPrice(ctx, fiat)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.entries[fiat] = memEntry{price: price, fetched: c.Clock.Now()}
	c.mu.Unlock()
	return price, nil
}

// RedisCache shares fetched rates across nodes through redis with a TTL.
// On any redis error it falls through to the source provider, so a dead
// redis degrades to uncached fetches instead of failing rate lookups.
type RedisCache struct {
	Source Provider
	TTL    time.Duration

	client *redis.Client
	log    *zap.SugaredLogger
}

func NewRedisCache(addr string, source Provider, ttl time.Duration, log *zap.SugaredLogger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})
	return &RedisCache{Source: source, TTL: ttl, client: client, log: log}
}

func rateKey(fiat string) string { return "rate:" + fiat }

func (c *RedisCache) MarketPrice(ctx context.Context, fiat string) (float64, error) {
	if val, err := c.client.Get(ctx, rateKey(fiat)).Result(); err == nil {
		if price, perr := strconv.ParseFloat(val, 64); perr == nil {
			return price, nil
		}
	} else if err != redis.Nil && c.log != nil {
		c.log.Warnw("rate_cache_read_failed", "fiat", fiat, "err", err)
	}

	price, err := c.Source.MarketPrice(ctx, fiat)
	if err != nil {
		return 0, err
	}

	val := strconv.FormatFloat(price, 'f', -1, 64)
	if err := c.client.Set(ctx, rateKey(fiat), val, c.TTL).Err(); err != nil && c.log != nil {
		c.log.Warnw("rate_cache_write_failed", "fiat", fiat, "err", err)
	}
	return price, nil
}

func (c *RedisCache) Close() error { return c.client.Close() }
