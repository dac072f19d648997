package swap

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
)

func TestRegistryAddGetRemove(t *testing.T) {
	r := NewRegistry()
	d := newDeal(RoleTaker, time.Now())
	d.RHash = chainhash.Hash{1, 2, 3}

	assert.Nil(t, r.Get(d.RHash))
	r.Add(d)
	assert.Equal(t, d, r.Get(d.RHash))
	assert.True(t, r.Has(d.RHash))

	r.Remove(d.RHash)
	assert.Nil(t, r.Get(d.RHash))
	// Idempotent.
	r.Remove(d.RHash)
	assert.Nil(t, r.Get(d.RHash))
}

func TestRegistryAddDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	d1 := newDeal(RoleTaker, time.Now())
	d1.RHash = chainhash.Hash{9, 9, 9}
	d2 := newDeal(RoleMaker, time.Now())
	d2.RHash = chainhash.Hash{9, 9, 9}

	r.Add(d1)
	assert.Panics(t, func() { r.Add(d2) })
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()
	d := newDeal(RoleTaker, time.Now())
	d.RHash = chainhash.Hash{5}
	d.PairID = "LTC/BTC"
	r.Add(d)

	snap := r.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, "LTC/BTC", snap[0].PairID)
}
