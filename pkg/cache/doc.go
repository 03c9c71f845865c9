// Package cache stores read-only SendGrid lookups in Redis.
//
// The newsletter API has a handful of endpoints whose answers change rarely
// but are fetched on almost every workflow step (identity listing for the
// default sender identity, category listing). Caching them keeps warm-up
// runs from issuing one extra round-trip per cloned newsletter.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, 5*time.Minute)
//
//	key := cache.Key{
//		Account:  "my-api-user",
//		Endpoint: "identity/list",
//		Params:   url.Values{"name": {"default"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from SendGrid, then manager.Set(ctx, key, entry)
//	}
//
// Credentials never become part of a key; entries are namespaced by account
// so several API users can share one Redis.
//
// # Metrics
//
//   - sendgrid_cache_hits_total - Cache hits
//   - sendgrid_cache_misses_total - Cache misses
//   - sendgrid_cache_errors_total{operation} - Redis errors by operation
package cache
