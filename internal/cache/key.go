package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// AnalyticsKey derives the stable key described in spec §4.2:
// analytics:<endpoint>:<stable-param-hash>. Parameters are sorted and
// normalised before hashing so identical requests always hash identically
// (the cacheability property tested in spec §8).
func AnalyticsKey(endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
		sb.WriteByte('&')
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("analytics:%s:%s", endpoint, hex.EncodeToString(sum[:])[:16])
}

// AnalyticsPrefix returns the prefix used to invalidate every cached
// result for an endpoint (or, with an empty endpoint, every analytics
// cache entry) on admin mutation.
func AnalyticsPrefix(endpoint string) string {
	if endpoint == "" {
		return "analytics:"
	}
	return fmt.Sprintf("analytics:%s:", endpoint)
}
