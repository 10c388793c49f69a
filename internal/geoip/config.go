package geoip

import (
	"github.com/sirupsen/logrus"

	"github.com/Wikid82/ipguard/internal/config"
)

// NewFromConfig builds the provider chain described by cfg: the keyed
// primary provider first, then the fallback. It returns nil when geolocation
// is disabled or no provider is configured, which callers treat as "record
// without geo data".
func NewFromConfig(cfg config.GeoConfig, log *logrus.Entry) *Cache {
	if !cfg.Enabled {
		return nil
	}

	var providers []Provider
	if cfg.ProviderURL != "" {
		providers = append(providers, NewHTTPProvider(HTTPProviderConfig{
			Name: "primary",
			URL:  cfg.ProviderURL,
			Key:  cfg.ProviderKey,
		}))
	}
	if cfg.FallbackURL != "" {
		providers = append(providers, NewHTTPProvider(HTTPProviderConfig{
			Name: "fallback",
			URL:  cfg.FallbackURL,
		}))
	}
	if len(providers) == 0 {
		return nil
	}

	return NewCache(NewMemoryStore(0), providers, cfg.CacheTTL, cfg.Timeout, log)
}
