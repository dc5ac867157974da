package config

import (
	"strings"
	"time"
)

// RateLimitConfig configures one token bucket.  Each protected route group
// has its own bucket, loaded from variables named <SCOPE>_RATE_LIMIT_*.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads the bucket for scope, e.g. "PURCHASE" reads
// PURCHASE_RATE_LIMIT_CAPACITY.  Unset values fall back to capacity and
// refill defaults suited to the given scope.
func LoadRateLimitConfig(scope string, capacity int, every time.Duration) RateLimitConfig {
	p := strings.ToUpper(scope) + "_RATE_LIMIT_"
	cfg := RateLimitConfig{
		Enabled:        envBool(p+"ENABLED", true),
		Capacity:       envInt(p+"CAPACITY", capacity),
		RefillTokens:   envInt(p+"REFILL_TOKENS", 1),
		RefillInterval: envDur(p+"REFILL_INTERVAL", every),
		TTL:            envDur(p+"TTL", 10*time.Minute),
		KeyStrategy:    envStr(p+"KEY_STRATEGY", "ip_route"),
		Prefix:         envStr(p+"PREFIX", "rl:"+strings.ToLower(scope)),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

// CacheConfig defines settings for the event read cache.  Entries are short
// lived and dropped whenever a purchase or an event change commits, so
// remaining capacity shown to buyers lags by at most TTL.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 10*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "cache:events"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
