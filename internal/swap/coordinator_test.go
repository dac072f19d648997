package swap

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexnode/swapcore/internal/config"
)

func testClock() Clock {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

// Valid compressed secp256k1 pubkeys, for tests that need verifyLNDSetup's
// validateChainPubKey to actually parse.
const (
	testPubKeyA = "021c97a90a411ff2b10dc2a8e32de2f29d2fa49d41bfbb52bd416e460db0747d0d"
	testPubKeyB = "033b2dd38d41445e25d626808d39c3359117c5ba9145740cd38a3b430f13153c97"
)

func newTestCoordinator(btc, ltc *fakeChainClient) *Coordinator {
	return NewCoordinator(map[config.Currency]ChainClient{
		config.BTC: btc,
		config.LTC: ltc,
	}, testClock())
}

// TestHappyPathTaker drives a full taker-side deal: BeginSwap sends the
// request, the maker's response triggers the taker's send, the stubbed
// chain client returns the preimage the taker already knows, and the deal
// completes with a single swap.paid emission.
func TestHappyPathTaker(t *testing.T) {
	btc := newFakeChainClient(40)
	ltc := newFakeChainClient(576)
	c := newTestCoordinator(btc, ltc)

	var paidEvents []SwapEvent
	c.OnEvent(func(ev SwapEvent) { paidEvents = append(paidEvents, ev) })

	peer := newFakePeer("P")
	peer.lndPubKeys["BTC"] = testPubKeyA
	peer.lndPubKeys["LTC"] = testPubKeyB

	maker := MakerOrder{ID: "O1", PairID: "LTC/BTC", Price: 0.01, PeerPubKey: "P"}
	taker := TakerOrder{LocalID: "L1", Quantity: 1.0, IsBuy: true}

	rHashHex, err := c.BeginSwap(context.Background(), maker, taker, peer)
	require.NoError(t, err)

	sent, ok := peer.lastSent().(SwapRequest)
	require.True(t, ok)
	assert.Equal(t, "LTC", sent.TakerCurrency)
	assert.Equal(t, "BTC", sent.MakerCurrency)
	assert.Equal(t, int64(100_000_000), sent.TakerAmount)
	assert.Equal(t, int64(1_000_000), sent.MakerAmount)
	assert.Equal(t, rHashHex, sent.RHash)

	d := c.Registry().Get(parseHashHex(t, rHashHex))
	require.NotNil(t, d)
	require.True(t, d.HasPreimage)

	btc.paymentResult = PaymentResult{PaymentPreimage: d.RPreimage}

	resp := SwapResponse{
		Envelope:       Envelope{RequestID: sent.RequestID},
		RHash:          rHashHex,
		Quantity:       1,
		HasQuantity:    true,
		MakerCLTVDelta: 50,
		HasCLTVDelta:   true,
	}
	err = c.HandleSwapResponse(context.Background(), resp, peer)
	require.NoError(t, err)

	assert.Equal(t, PhaseSwapCompleted, d.Phase)
	assert.Equal(t, StateCompleted, d.State)

	// give the per-event goroutine a moment to run
	waitForEvent(t, &paidEvents, 1)
	assert.Equal(t, EventSwapPaid, paidEvents[0].Type)
}

// TestHappyPathMaker drives a full maker-side deal: AcceptDeal replies
// to an inbound request, and resolving the held HTLC returns the route
// payment's preimage and advances the deal to AmountReceived.
func TestHappyPathMaker(t *testing.T) {
	btc := newFakeChainClient(40)
	ltc := newFakeChainClient(576)
	c := newTestCoordinator(btc, ltc)

	peer := newFakePeer("T")
	peer.lndPubKeys["BTC"] = testPubKeyA
	peer.lndPubKeys["LTC"] = testPubKeyB

	ltc.routes = []Route{{TotalTimelock: 144}}
	ltc.info = ChainInfo{BlockHeight: 0}

	req := SwapRequest{
		Envelope:       NewEnvelope(),
		RHash:          "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
		PairID:         "LTC/BTC",
		OrderID:        "O1",
		ProposedQuantity: 1,
		TakerCurrency:  "LTC",
		MakerCurrency:  "BTC",
		TakerAmount:    100_000_000,
		MakerAmount:    1_000_000,
		TakerCLTVDelta: 40,
	}

	accepted := AcceptedOrder{QuantityToAccept: 1, Price: 0.01, LocalID: "M1"}
	rHashHex, err := c.AcceptDeal(context.Background(), accepted, req, peer)
	require.NoError(t, err)
	assert.Equal(t, req.RHash, rHashHex)

	sent, ok := peer.lastSent().(SwapResponse)
	require.True(t, ok)
	assert.Equal(t, float64(1), sent.Quantity)
	assert.Equal(t, uint32(50), sent.MakerCLTVDelta)

	d := c.Registry().Get(parseHashHex(t, rHashHex))
	require.NotNil(t, d)
	assert.Equal(t, PhaseSwapAgreed, d.Phase)

	ltc.routeSendResult = PaymentResult{PaymentPreimage: chainhash.Hash{0xAB}}

	preimage, err := c.ResolveHTLC(context.Background(), HeldHTLC{
		Hash:          d.RHash,
		AmountMsat:    1_000_000_000,
		TimeoutHeight: 90,
		HeightNow:     0,
	})
	require.NoError(t, err)
	assert.Equal(t, ltc.routeSendResult.PaymentPreimage, preimage)
	assert.Equal(t, PhaseAmountReceived, d.Phase)
}

// TestNoRoute checks that a maker who can't find an outbound route
// rejects the request with NO_ROUTE instead of accepting the deal.
func TestNoRoute(t *testing.T) {
	btc := newFakeChainClient(40)
	ltc := newFakeChainClient(576)
	c := newTestCoordinator(btc, ltc)

	peer := newFakePeer("T")
	peer.lndPubKeys["BTC"] = testPubKeyA
	peer.lndPubKeys["LTC"] = testPubKeyB

	ltc.routes = nil // empty route result

	req := SwapRequest{
		Envelope:       NewEnvelope(),
		RHash:          "11112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
		PairID:         "LTC/BTC",
		OrderID:        "O1",
		ProposedQuantity: 1,
		TakerCurrency:  "LTC",
		MakerCurrency:  "BTC",
		TakerAmount:    100_000_000,
		MakerAmount:    1_000_000,
		TakerCLTVDelta: 40,
	}

	var failed []SwapEvent
	c.OnEvent(func(ev SwapEvent) { failed = append(failed, ev) })

	accepted := AcceptedOrder{QuantityToAccept: 1, Price: 0.01, LocalID: "M1"}
	_, err := c.AcceptDeal(context.Background(), accepted, req, peer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to find route")

	sent, ok := peer.lastSent().(SwapResponse)
	require.True(t, ok)
	assert.Equal(t, RejectNoRoute, sent.RejectionReason)
	assert.Equal(t, req.RequestID, sent.RequestID)

	waitForEvent(t, &failed, 1)
	assert.Equal(t, EventSwapFailed, failed[0].Type)
}

func parseHashHex(t *testing.T, hexStr string) chainhash.Hash {
	t.Helper()
	var out chainhash.Hash
	b, err := hex.DecodeString(hexStr)
	require.NoError(t, err)
	require.Equal(t, 32, copy(out[:], b))
	return out
}

func waitForEvent(t *testing.T, events *[]SwapEvent, want int) {
	t.Helper()
	for i := 0; i < 100; i++ {
		if len(*events) >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.GreaterOrEqual(t, len(*events), want, "timed out waiting for event")
}
