package swap

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/dexnode/swapcore/internal/config"
)

// MakerOrder is the remote order the initiator is filling.
type MakerOrder struct {
	ID         string
	PairID     string
	Price      float64
	PeerPubKey string
}

// TakerOrder is the local order driving the initiator's side of the fill.
type TakerOrder struct {
	LocalID  string
	Quantity float64
	IsBuy    bool
}

var (
	// ErrPairNotSupported is returned when BeginSwap is asked to trade a
	// pair other than the one this node recognizes.
	ErrPairNotSupported = errors.New("swap: pair not supported")

	// ErrPartialFillRejected is returned by HandleSwapResponse when the
	// maker's accepted quantity is strictly less than proposed_quantity.
	// Recomputing amounts for a partial fill is unsupported; this
	// implementation takes the reject branch rather than proceed with
	// stale amounts.
	ErrPartialFillRejected = errors.New("swap: partial fill rejected, response quantity below proposed quantity")

	// ErrPreimageMismatch is returned when the chain client's returned
	// preimage does not hash to the deal's r_hash.
	ErrPreimageMismatch = errors.New("swap: returned preimage does not match r_hash")
)

// splitPairID parses "BASE/QUOTE" into its two currencies.
func splitPairID(pairID string) (base, quote config.Currency, ok bool) {
	parts := strings.SplitN(pairID, "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	base, quote = config.Currency(parts[0]), config.Currency(parts[1])
	if !base.Valid() || !quote.Valid() {
		return "", "", false
	}
	return base, quote, true
}

// BeginSwap constructs a new deal from a matched (maker, taker) order pair
// and sends the opening SwapRequest. It returns the new deal's r_hash on
// success.
func (c *Coordinator) BeginSwap(ctx context.Context, maker MakerOrder, taker TakerOrder, peer Peer) (string, error) {
	if !config.PairSupported(maker.PairID) {
		return "", fmt.Errorf("%w: %s", ErrPairNotSupported, maker.PairID)
	}

	base, quote, ok := splitPairID(maker.PairID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPairNotSupported, maker.PairID)
	}

	// Step 1: buying base => taker receives base, maker receives quote;
	// selling => swapped.
	var takerCurrency, makerCurrency config.Currency
	if taker.IsBuy {
		takerCurrency, makerCurrency = base, quote
	} else {
		takerCurrency, makerCurrency = quote, base
	}

	takerClient, hasTakerClient := c.client(takerCurrency)
	makerClient, hasMakerClient := c.client(makerCurrency)
	if !hasTakerClient || !takerClient.IsConnected() || !hasMakerClient || !makerClient.IsConnected() {
		return "", fmt.Errorf("swap: chain client for %s/%s not connected", takerCurrency, makerCurrency)
	}

	// Step 2.
	takerCLTVDelta := takerClient.CLTVDelta()

	// Step 3.
	takerAmount, makerAmount := computeAmounts(taker.Quantity, maker.Price, takerCurrency, makerCurrency)

	// Step 4.
	var preimage chainhash.Hash
	if _, err := rand.Read(preimage[:]); err != nil {
		return "", fmt.Errorf("swap: generating preimage: %w", err)
	}
	rHash := HashPreimage(preimage)

	if c.registry.Has(rHash) {
		// Astronomically unlikely with a CSPRNG, but two deals can never
		// share an r_hash, so check anyway.
		return "", fmt.Errorf("swap: r_hash collision generating new deal")
	}

	now := c.now()
	d := newDeal(RoleTaker, now)
	d.RHash = rHash
	d.RPreimage = preimage
	d.HasPreimage = true
	d.PeerPubKey = maker.PeerPubKey
	d.OrderID = maker.ID
	d.LocalOrderID = taker.LocalID
	d.PairID = maker.PairID
	d.Price = maker.Price
	d.TakerCurrency = takerCurrency
	d.MakerCurrency = makerCurrency
	d.TakerAmount = takerAmount
	d.MakerAmount = makerAmount
	d.TakerCLTVDelta = takerCLTVDelta
	d.ProposedQuantity = taker.Quantity

	// Step 5.
	c.registry.Add(d)

	// Step 6.
	if reason, ok := verifyLNDSetup(ctx, c, peer, takerCurrency, makerCurrency); !ok {
		c.fail(d, reason)
		return d.RHashHex(), errors.New(reason)
	}

	// Step 7.
	req := SwapRequest{
		Envelope:         NewEnvelope(),
		RHash:            d.RHashHex(),
		PairID:           d.PairID,
		OrderID:          d.OrderID,
		ProposedQuantity: d.ProposedQuantity,
		TakerCurrency:    d.TakerCurrency.String(),
		MakerCurrency:    d.MakerCurrency.String(),
		TakerAmount:      d.TakerAmount,
		MakerAmount:      d.MakerAmount,
		TakerCLTVDelta:   d.TakerCLTVDelta,
	}
	if err := peer.SendPacket(ctx, req); err != nil {
		c.fail(d, fmt.Sprintf("failed to send swap request: %v", err))
		return d.RHashHex(), err
	}

	// Step 8.
	d.advancePhase(PhaseSwapRequested, c.now())
	return d.RHashHex(), nil
}

// HandleSwapResponse processes an inbound SwapResponse for a known r_hash.
// It issues the taker's outbound HTLC send and drives the deal to
// SwapCompleted or Error.
func (c *Coordinator) HandleSwapResponse(ctx context.Context, resp SwapResponse, peer Peer) error {
	rHash, err := parseRHash(resp.RHash)
	if err != nil {
		return err
	}

	d := c.registry.Get(rHash)
	if d == nil {
		c.log.Warn("swap response for unknown deal", "r_hash", resp.RHash)
		return nil
	}

	if resp.RejectionReason != "" {
		c.fail(d, string(resp.RejectionReason))
		return fmt.Errorf("swap: maker rejected deal: %s", resp.RejectionReason)
	}

	if resp.HasCLTVDelta {
		d.MakerCLTVDelta = resp.MakerCLTVDelta
	}

	if resp.HasQuantity {
		switch {
		case resp.Quantity <= 0 || resp.Quantity > d.ProposedQuantity:
			c.fail(d, "maker accepted an invalid quantity")
			return fmt.Errorf("swap: invalid accepted quantity %v for proposed %v", resp.Quantity, d.ProposedQuantity)
		case resp.Quantity < d.ProposedQuantity:
			c.fail(d, ErrPartialFillRejected.Error())
			return ErrPartialFillRejected
		default:
			// Equal quantities: amounts already computed, nothing to do.
			d.Quantity = resp.Quantity
			d.HasQuantity = true
		}
	}

	makerClient, ok := c.client(d.MakerCurrency)
	if !ok {
		c.fail(d, fmt.Sprintf("unsupported currency: %s", d.MakerCurrency))
		return fmt.Errorf("swap: no chain client for %s", d.MakerCurrency)
	}

	destination, _ := peer.LNDPubKey(d.MakerCurrency.String())

	d.advancePhase(PhaseAmountSent, c.now())

	result, err := makerClient.SendPaymentSync(ctx, PaymentRequest{
		Amount:         d.MakerAmount,
		Destination:    destination,
		PaymentHash:    d.RHash,
		FinalCLTVDelta: d.MakerCLTVDelta,
	})
	if err != nil || result.PaymentError != "" {
		reason := errString(err, result.PaymentError)
		c.fail(d, reason)
		c.sendSwapError(ctx, peer, d, reason, resp.RequestID)
		return fmt.Errorf("swap: payment failed: %s", reason)
	}

	if HashPreimage(result.PaymentPreimage) != d.RHash {
		c.fail(d, ErrPreimageMismatch.Error())
		c.sendSwapError(ctx, peer, d, ErrPreimageMismatch.Error(), resp.RequestID)
		return ErrPreimageMismatch
	}
	d.RPreimage = result.PaymentPreimage
	d.HasPreimage = true

	now := c.now()
	if d.Phase == PhaseAmountSent {
		// No separate resolver invocation observed this leg settle (the
		// common case with a chain client that completes both legs within
		// one synchronous send); drive the AmountReceived transition here.
		d.advancePhase(PhaseAmountReceived, now)
		c.emitPaid(d, d.buildSwapResult())
	}
	d.advancePhase(PhaseSwapCompleted, now)

	if err := peer.SendPacket(ctx, SwapComplete{Envelope: NewEnvelope(), RHash: d.RHashHex()}); err != nil {
		c.log.Warn("failed to send swap-complete notification", "r_hash", d.RHashHex(), "error", err)
	}
	return nil
}

func errString(err error, paymentError string) string {
	if paymentError != "" {
		return paymentError
	}
	if err != nil {
		return err.Error()
	}
	return "unknown payment failure"
}

func (c *Coordinator) sendSwapError(ctx context.Context, peer Peer, d *Deal, message, requestID string) {
	env := NewEnvelope()
	if requestID != "" {
		env.RequestID = requestID
	}
	if err := peer.SendPacket(ctx, SwapError{Envelope: env, RHash: d.RHashHex(), ErrorMessage: message}); err != nil {
		c.log.Warn("failed to send swap-error notification", "r_hash", d.RHashHex(), "error", err)
	}
}
