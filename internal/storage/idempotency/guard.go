// Package idempotency records which client idempotency keys have already been accepted.
// A claim is a best-effort window bounded by its TTL, not a permanent dedup record.
package idempotency

import (
	"context"
	"time"
)

const DefaultTTL = 300 * time.Second

// Guard is an atomic set-if-absent store. Claim reports true only for the first caller within
// the TTL window.
type Guard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Key namespaces a client key by operation, e.g. Key("withdraw", "abc") == "idem:withdraw:abc".
func Key(operation, key string) string {
	return "idem:" + operation + ":" + key
}
