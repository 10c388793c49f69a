package geoip

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/metrics"
)

// DefaultTTL is how long a resolution, including an empty one, is reused.
const DefaultTTL = 24 * time.Hour

// Cache resolves addresses through an ordered provider chain and remembers
// the answer for a fixed TTL. Concurrent misses for the same address may
// each query the providers; the last write wins.
type Cache struct {
	store     Store
	providers []Provider
	ttl       time.Duration
	timeout   time.Duration
	log       *logrus.Entry
}

// NewCache returns a Cache trying providers in order. Zero ttl and timeout
// select DefaultTTL and DefaultTimeout.
func NewCache(store Store, providers []Provider, ttl, timeout time.Duration, log *logrus.Entry) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cache{
		store:     store,
		providers: providers,
		ttl:       ttl,
		timeout:   timeout,
		log:       logger.OrDefault(log, "geoip"),
	}
}

func cacheKey(address string) string {
	return "geo:" + address
}

// Resolve returns the location for address. It never fails: if every
// provider errors or has no data the empty Location is cached and returned.
func (c *Cache) Resolve(ctx context.Context, address string) Location {
	if address == "" {
		return Location{}
	}

	key := cacheKey(address)
	if loc, ok := c.store.Get(key); ok {
		metrics.IncGeoLookup("hit")
		return loc
	}

	loc := c.lookup(ctx, address)
	if ctx.Err() != nil {
		// The caller went away; the providers were never really asked.
		return loc
	}
	if loc.IsEmpty() {
		metrics.IncGeoLookup("empty")
	} else {
		metrics.IncGeoLookup("miss")
	}
	c.store.Set(key, loc, c.ttl)
	return loc
}

func (c *Cache) lookup(ctx context.Context, address string) Location {
	for i, p := range c.providers {
		loc, err := c.call(ctx, p, address)
		if err == nil && !loc.IsEmpty() {
			return loc
		}
		entry := c.log.WithFields(logrus.Fields{"provider": p.Name(), "address": address})
		if err == nil {
			err = ErrNoData
		}
		// Earlier providers are expected to miss now and then; only the
		// last one failing means the address goes unresolved.
		if i < len(c.providers)-1 {
			entry.WithError(err).Debug("Geolocation provider lookup failed")
		} else {
			entry.WithError(err).Error("Geolocation fallback lookup failed")
		}
	}
	return Location{}
}

func (c *Cache) call(ctx context.Context, p Provider, address string) (Location, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return p.Lookup(ctx, address)
}
