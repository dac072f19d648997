package swap

import (
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexnode/swapcore/internal/config"
)

func newMakerDeal(now time.Time) *Deal {
	d := newDeal(RoleMaker, now)
	d.RHash = chainhash.Hash{0x42}
	d.MakerAmount = 1_000_000
	d.MakerCLTVDelta = 50
	d.TakerCurrency = config.LTC
	d.MakerCurrency = config.BTC
	return d
}

func TestAmountTooSmall(t *testing.T) {
	btc := newFakeChainClient(40)
	ltc := newFakeChainClient(576)
	c := newTestCoordinator(btc, ltc)

	d := newMakerDeal(c.now())
	c.Registry().Add(d)

	expectedMsat := d.MakerAmount * 1000
	_, err := c.ResolveHTLC(context.Background(), HeldHTLC{
		Hash:          d.RHash,
		AmountMsat:    expectedMsat - 1,
		TimeoutHeight: 1000,
		HeightNow:     0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount too small")
	assert.Equal(t, StateError, d.State)
}

func TestInsufficientTimelock(t *testing.T) {
	btc := newFakeChainClient(40)
	ltc := newFakeChainClient(576)
	c := newTestCoordinator(btc, ltc)

	d := newMakerDeal(c.now())
	c.Registry().Add(d)

	_, err := c.ResolveHTLC(context.Background(), HeldHTLC{
		Hash:          d.RHash,
		AmountMsat:    d.MakerAmount * 1000,
		TimeoutHeight: 40,
		HeightNow:     0, // delta of 40 < required 50
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient timelock")
	assert.Equal(t, StateError, d.State)
}

func TestResolveHTLCUnknownHash(t *testing.T) {
	btc := newFakeChainClient(40)
	ltc := newFakeChainClient(576)
	c := newTestCoordinator(btc, ltc)

	_, err := c.ResolveHTLC(context.Background(), HeldHTLC{Hash: chainhash.Hash{0xFF}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown hash")
}

func TestResolveAsTakerReturnsStoredPreimage(t *testing.T) {
	btc := newFakeChainClient(40)
	ltc := newFakeChainClient(576)
	c := newTestCoordinator(btc, ltc)

	var paidEvents []SwapEvent
	c.OnEvent(func(ev SwapEvent) { paidEvents = append(paidEvents, ev) })

	now := c.now()
	d := newDeal(RoleTaker, now)
	d.RHash = chainhash.Hash{7}
	d.RPreimage = chainhash.Hash{7, 7, 7}
	d.HasPreimage = true
	d.TakerAmount = 1_000_000
	d.TakerCLTVDelta = 40
	d.advancePhase(PhaseSwapRequested, now)
	d.advancePhase(PhaseAmountSent, now)
	c.Registry().Add(d)

	preimage, err := c.ResolveHTLC(context.Background(), HeldHTLC{
		Hash:          d.RHash,
		AmountMsat:    d.TakerAmount * 1000,
		TimeoutHeight: 1000,
		HeightNow:     0,
	})
	require.NoError(t, err)
	assert.Equal(t, d.RPreimage, preimage)
	assert.Equal(t, PhaseAmountReceived, d.Phase)

	waitForEvent(t, &paidEvents, 1)
	assert.Equal(t, EventSwapPaid, paidEvents[0].Type)
	assert.Equal(t, d.RHashHex(), paidEvents[0].RHash)

	// The deal's own Done() channel also resolves exactly once.
	select {
	case outcome := <-d.Done():
		assert.True(t, outcome.Completed)
	default:
		t.Fatal("expected Done() to have resolved")
	}
}
