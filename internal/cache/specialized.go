package cache

import "time"

// ResponseCache stores API responses keyed by endpoint plus parameters.
type ResponseCache[V any] struct {
	cache *Cache[V]
}

// NewResponseCache creates a response cache with its own sweep loop.
func NewResponseCache[V any](opts ...Option[V]) *ResponseCache[V] {
	return &ResponseCache[V]{cache: New(DefaultSweepInterval, opts...)}
}

// Set stores a response for the endpoint and parameter combination.
func (rc *ResponseCache[V]) Set(endpoint string, params map[string]string, value V, ttl time.Duration) {
	rc.cache.SetTTL(ResponseKey(endpoint, params), value, ttl)
}

// Get looks up a response; parameter order is irrelevant.
func (rc *ResponseCache[V]) Get(endpoint string, params map[string]string) (V, bool) {
	return rc.cache.Get(ResponseKey(endpoint, params))
}

// Invalidate drops the entry for the endpoint and parameters.
func (rc *ResponseCache[V]) Invalidate(endpoint string, params map[string]string) {
	rc.cache.Delete(ResponseKey(endpoint, params))
}

// Close stops the underlying sweep loop.
func (rc *ResponseCache[V]) Close() { rc.cache.Close() }

// SearchCache stores search results keyed by normalized free-text query, so
// queries differing only in case or whitespace share one entry.
type SearchCache[V any] struct {
	cache *Cache[V]
}

// NewSearchCache creates a search-result cache with its own sweep loop.
func NewSearchCache[V any](opts ...Option[V]) *SearchCache[V] {
	return &SearchCache[V]{cache: New(DefaultSweepInterval, opts...)}
}

// Set stores results for a query.
func (sc *SearchCache[V]) Set(query string, value V) {
	sc.cache.Set(NormalizeQuery(query), value)
}

// Get looks up results for a query.
func (sc *SearchCache[V]) Get(query string) (V, bool) {
	return sc.cache.Get(NormalizeQuery(query))
}

// Close stops the underlying sweep loop.
func (sc *SearchCache[V]) Close() { sc.cache.Close() }
