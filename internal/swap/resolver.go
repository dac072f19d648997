package swap

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// validateRequest checks the amount and timelock of an inbound held HTLC
// against what the deal expects for this node's role. Returns a non-empty
// reason on failure.
func validateRequest(d *Deal, held HeldHTLC) (reason string, ok bool) {
	expectedAmount := d.TakerAmount
	requiredDelta := d.TakerCLTVDelta
	if d.MyRole == RoleMaker {
		expectedAmount = d.MakerAmount
		requiredDelta = d.MakerCLTVDelta
	}
	expectedMsat := expectedAmount * 1000

	if held.AmountMsat < expectedMsat {
		return fmt.Sprintf("amount too small: got %d msat, expected at least %d msat", held.AmountMsat, expectedMsat), false
	}

	if held.TimeoutHeight < held.HeightNow || held.TimeoutHeight-held.HeightNow < requiredDelta {
		return fmt.Sprintf("insufficient timelock: got %d blocks, required %d", held.TimeoutHeight-held.HeightNow, requiredDelta), false
	}

	return "", true
}

// ResolveHTLC is invoked by the local chain client when an inbound HTLC
// addressed to a known r_hash is held pending. It returns the preimage to
// release the HTLC with, or an error to have it cancelled.
func (c *Coordinator) ResolveHTLC(ctx context.Context, held HeldHTLC) (chainhash.Hash, error) {
	d := c.registry.Get(held.Hash)
	if d == nil {
		return chainhash.Hash{}, fmt.Errorf("swap: unknown hash %x", held.Hash)
	}

	if reason, ok := validateRequest(d, held); !ok {
		c.fail(d, reason)
		return chainhash.Hash{}, fmt.Errorf("swap: %s", reason)
	}

	switch d.MyRole {
	case RoleMaker:
		return c.resolveAsMaker(ctx, d)
	case RoleTaker:
		return c.resolveAsTaker(d)
	default:
		panic(fmt.Sprintf("swap: deal %s has unknown role %q", d.RHashHex(), d.MyRole))
	}
}

// resolveAsMaker forwards payment on the taker currency using the
// previously queried route, learning the preimage that settles the
// incoming HTLC from the taker.
func (c *Coordinator) resolveAsMaker(ctx context.Context, d *Deal) (chainhash.Hash, error) {
	takerClient, ok := c.client(d.TakerCurrency)
	if !ok {
		reason := fmt.Sprintf("unsupported currency: %s", d.TakerCurrency)
		c.fail(d, reason)
		return chainhash.Hash{}, fmt.Errorf("swap: %s", reason)
	}

	d.advancePhase(PhaseAmountSent, c.now())

	result, err := takerClient.SendToRouteSync(ctx, RouteSendRequest{
		Routes:      d.MakerToTakerRoutes,
		PaymentHash: d.RHash,
	})
	if err != nil || result.PaymentError != "" {
		reason := errString(err, result.PaymentError)
		c.fail(d, reason)
		return chainhash.Hash{}, fmt.Errorf("swap: %s", reason)
	}

	d.RPreimage = result.PaymentPreimage
	d.HasPreimage = true
	d.advancePhase(PhaseAmountReceived, c.now())
	c.emitPaid(d, d.buildSwapResult())

	return result.PaymentPreimage, nil
}

// resolveAsTaker releases the preimage the taker already holds from deal
// creation; the maker has already learned it via resolveAsMaker. The
// taker's own outbound send (HandleSwapResponse) can only settle after
// this fires, but a chain-client implementation that completes both legs
// within one synchronous SendPaymentSync call (as the happy-path scenarios
// do) may drive the deal past AmountSent before this is ever invoked; in
// that case there is nothing left to advance and the stored preimage is
// simply handed back.
func (c *Coordinator) resolveAsTaker(d *Deal) (chainhash.Hash, error) {
	if !d.HasPreimage {
		reason := "taker deal has no stored preimage"
		c.fail(d, reason)
		return chainhash.Hash{}, fmt.Errorf("swap: %s", reason)
	}
	if d.Phase == PhaseAmountSent {
		d.advancePhase(PhaseAmountReceived, c.now())
		c.emitPaid(d, d.buildSwapResult())
	}
	return d.RPreimage, nil
}
