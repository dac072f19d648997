package swap

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Registry is the in-memory mapping from payment hash to deal record; the
// sole authority over record identity and lookup. Exclusively owned by the
// Coordinator; no other component mutates it directly.
type Registry struct {
	mu    sync.Mutex
	deals map[chainhash.Hash]*Deal
}

// NewRegistry creates an empty deal registry.
func NewRegistry() *Registry {
	return &Registry{deals: make(map[chainhash.Hash]*Deal)}
}

// Add registers a new deal. Adding a duplicate RHash is a programming error
// (at most one deal per RHash) and panics rather than returning an
// error, since it can only happen from a local logic bug — the duplicate
// r_hash *race* from a remote peer is rejected earlier, in AcceptDeal,
// with a proper protocol error.
func (r *Registry) Add(d *Deal) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deals[d.RHash]; exists {
		panic(fmt.Sprintf("swap: registry already has a deal for %x", d.RHash))
	}
	r.deals[d.RHash] = d
}

// Get is side-effect free: it returns the deal for hash, or nil if none is
// registered.
func (r *Registry) Get(hash chainhash.Hash) *Deal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deals[hash]
}

// Has reports whether a deal for hash is already registered, used by the
// responder to reject a colliding r_hash before constructing a new deal.
func (r *Registry) Has(hash chainhash.Hash) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.deals[hash]
	return ok
}

// Remove is idempotent: removing an absent deal is a no-op.
func (r *Registry) Remove(hash chainhash.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.deals, hash)
}

// Snapshot returns a read-only summary of every registered deal, for an
// introspection/observability caller (an RPC or CLI layer).
func (r *Registry) Snapshot() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Summary, 0, len(r.deals))
	for _, d := range r.deals {
		out = append(out, d.Summary())
	}
	return out
}
