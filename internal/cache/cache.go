// Package cache implements the TTL cache adapter of spec §4.2 (C2): a
// key-value store over string keys and opaque value bytes, oblivious to
// value semantics, that degrades to a transparent cache-miss when the
// backend is unreachable.
package cache

import "context"

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	SetTTL(ctx context.Context, key string, value []byte, ttlSeconds int)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
}
