// Package cache stores resolved Discord channel and thread names in Redis.
//
// Name lookups are the only repeated metadata requests an export run makes:
// a channel is resolved once per run, but re-running an export or exporting
// individual threads with --thread resolves the same ids again. With a Redis
// URL configured, the client consults this cache before calling
// GET /channels/{id} and stores every successfully resolved name.
//
// Only names that came back from a 200 response are cached. Fallback names
// (the raw id used when the API call failed) are never stored, so a transient
// failure cannot pin an id as a display name.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, cache.DefaultTTL)
//
//	key := cache.NameKey{Kind: cache.KindChannel, ID: "1234567890"}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// resolve through the API, then manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - discord_name_cache_hits_total
//   - discord_name_cache_misses_total
//   - discord_name_cache_errors_total{operation}
package cache
