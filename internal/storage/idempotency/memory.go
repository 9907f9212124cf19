package idempotency

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many claims are taken between sweeps of expired ones.
const sweepEvery = 256

// MemoryGuard keeps claims in process. It is only correct for a single server instance.
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time

	sinceSweep int
}

var _ Guard = (*MemoryGuard)(nil)

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (g *MemoryGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expiresAt, ok := g.claims[key]; ok && now.Before(expiresAt) {
		return false, nil
	}

	g.claims[key] = now.Add(ttl)
	g.sinceSweep++
	if g.sinceSweep >= sweepEvery {
		g.sinceSweep = 0
		g.sweep(now)
	}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, key)
	return nil
}

// sweep drops expired claims. Caller holds mu.
func (g *MemoryGuard) sweep(now time.Time) {
	for key, expiresAt := range g.claims {
		if !now.Before(expiresAt) {
			delete(g.claims, key)
		}
	}
}
