package cache

import (
	"sort"
	"strings"
)

// ResponseKey derives a deterministic cache key from an endpoint name and a
// parameter map. Parameter keys are sorted before concatenation so argument
// order never affects cache hits.
func ResponseKey(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(endpoint)
	for _, k := range keys {
		b.WriteByte(':')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

// NormalizeQuery canonicalizes a free-text search query (case folded,
// trimmed, internal whitespace collapsed) so equivalent queries share one
// cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
