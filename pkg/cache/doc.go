// Package cache holds the two caches used when talking to Alma.
//
// Group is an in-process deduplicating memo. It stores the in-flight fetch
// rather than its result, so concurrent callers asking for the same key
// share one request and observe the same value or error. Entries are
// evicted LRU and, optionally, after a maximum age.
//
// Manager is an optional Redis store for configuration responses
// (/almaws/v1/conf/...). Entries carry the ETag and Expires of the upstream
// response and are revalidated with If-None-Match once stale.
//
// # Deduplicating lookups
//
//	users := cache.NewGroup[string, *model.User]("user", 100, time.Minute)
//
//	user, err := users.Do(ctx, link, func(ctx context.Context) (*model.User, error) {
//		var u model.User
//		err := client.Get(ctx, link, nil, &u)
//		return &u, err
//	})
//
// A failed fetch stays cached until it is evicted or forgotten; a fetch
// abandoned because its context was cancelled is forgotten immediately.
//
// # Response caching
//
//	manager := cache.NewManager(redisClient)
//	key := cache.Key{Path: "/almaws/v1/conf/libraries/MAIN/locations"}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from Alma, then manager.Set(ctx, key, entry)
//	}
//	if entry.IsExpired() {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - alma_dedup_cache_requests_total{cache, result}
//   - alma_response_cache_requests_total{result}
//   - alma_conditional_requests_total
//   - alma_304_responses_total
//   - alma_response_cache_errors_total{operation}
package cache
