package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dexnode/swapcore/internal/config"
)

// AcceptedOrder describes the local maker order being used to fill an
// inbound SwapRequest.
type AcceptedOrder struct {
	QuantityToAccept float64
	Price            float64
	LocalID          string
}

// ErrDuplicateRHash is returned when an inbound SwapRequest names an
// r_hash already present in the registry. Since r_hash is chosen by the
// taker, a malicious or buggy taker could re-send; AcceptDeal rejects the
// duplicate rather than silently overwriting the existing deal.
var ErrDuplicateRHash = errors.New("swap: duplicate r_hash")

// AcceptDeal validates and accepts an inbound SwapRequest, querying a
// route and computing the maker-leg CLTV delta before replying.
func (c *Coordinator) AcceptDeal(ctx context.Context, accepted AcceptedOrder, req SwapRequest, peer Peer) (string, error) {
	rHash, err := parseRHash(req.RHash)
	if err != nil {
		return "", err
	}

	if !config.PairSupported(req.PairID) {
		c.sendResponseError(ctx, peer, req.RHash, req.RequestID, RejectPairNotSupported, "pair not supported: "+req.PairID)
		return "", fmt.Errorf("%w: %s", ErrPairNotSupported, req.PairID)
	}

	if c.registry.Has(rHash) {
		c.sendResponseError(ctx, peer, req.RHash, req.RequestID, RejectOrderUnavailable, ErrDuplicateRHash.Error())
		return "", ErrDuplicateRHash
	}

	takerCurrency := config.Currency(req.TakerCurrency)
	makerCurrency := config.Currency(req.MakerCurrency)

	now := c.now()
	d := newDeal(RoleMaker, now)
	d.RHash = rHash
	d.PeerPubKey = peer.NodePubKey()
	d.OrderID = req.OrderID
	d.LocalOrderID = accepted.LocalID
	d.PairID = req.PairID
	d.Price = accepted.Price
	d.TakerCurrency = takerCurrency
	d.MakerCurrency = makerCurrency
	d.TakerAmount = req.TakerAmount
	d.MakerAmount = req.MakerAmount
	d.TakerCLTVDelta = req.TakerCLTVDelta
	d.ProposedQuantity = req.ProposedQuantity

	if accepted.QuantityToAccept <= 0 || accepted.QuantityToAccept > req.ProposedQuantity {
		return "", fmt.Errorf("swap: accepted quantity %v invalid for proposed %v", accepted.QuantityToAccept, req.ProposedQuantity)
	}
	d.Quantity = accepted.QuantityToAccept
	d.HasQuantity = true

	if takerPubKey, ok := peer.LNDPubKey(takerCurrency.String()); ok {
		d.TakerPubKey = takerPubKey
	}

	// Step 1.
	c.registry.Add(d)

	// Step 2.
	if reason, ok := verifyLNDSetup(ctx, c, peer, takerCurrency, makerCurrency); !ok {
		c.fail(d, reason)
		c.sendResponseError(ctx, peer, d.RHashHex(), req.RequestID, "", reason)
		return d.RHashHex(), errors.New(reason)
	}

	// Step 3.
	takerClient, ok := c.client(takerCurrency)
	if !ok {
		reason := fmt.Sprintf("unsupported currency: %s", takerCurrency)
		c.fail(d, reason)
		c.sendResponseError(ctx, peer, d.RHashHex(), req.RequestID, "", reason)
		return d.RHashHex(), errors.New(reason)
	}

	// Step 4.
	routes, err := takerClient.QueryRoutes(ctx, d.TakerAmount, d.TakerCLTVDelta, 1, d.TakerPubKey)
	if err != nil || len(routes) == 0 {
		reason := "unable to find route to peer"
		if err != nil {
			reason = fmt.Sprintf("unable to find route to peer: %v", err)
		}
		c.fail(d, reason)
		c.sendResponseError(ctx, peer, d.RHashHex(), req.RequestID, RejectNoRoute, reason)
		return d.RHashHex(), errors.New(reason)
	}
	route := routes[0]
	d.MakerToTakerRoutes = routes

	// Step 5.
	info, err := takerClient.GetInfo(ctx)
	if err != nil {
		reason := fmt.Sprintf("chain height unavailable: %v", err)
		c.fail(d, reason)
		c.sendResponseError(ctx, peer, d.RHashHex(), req.RequestID, "", reason)
		return d.RHashHex(), errors.New(reason)
	}

	// Step 6.
	routeCLTVDelta := route.TotalTimelock - info.BlockHeight

	// Step 7.
	btcChain := config.MustGetChain(config.BTC)
	ltcChain := config.MustGetChain(config.LTC)
	d.MakerCLTVDelta = scaleMakerCLTVDelta(btcChain, ltcChain, routeCLTVDelta, makerCurrency)

	// Step 8. The response echoes proposed_quantity rather than the
	// (possibly smaller) accepted quantity; partial-fill amount
	// recomputation is unimplemented, so the two only ever differ in a
	// case this coordinator doesn't yet support.
	resp := SwapResponse{
		Envelope:       Envelope{RequestID: req.RequestID},
		RHash:          d.RHashHex(),
		Quantity:       d.ProposedQuantity,
		HasQuantity:    true,
		MakerCLTVDelta: d.MakerCLTVDelta,
		HasCLTVDelta:   true,
	}
	if err := peer.SendPacket(ctx, resp); err != nil {
		c.fail(d, fmt.Sprintf("failed to send swap response: %v", err))
		return d.RHashHex(), err
	}

	// Step 9.
	d.advancePhase(PhaseSwapAgreed, c.now())
	return d.RHashHex(), nil
}

func (c *Coordinator) sendResponseError(ctx context.Context, peer Peer, rHash, requestID string, rejection RejectionReason, reason string) {
	resp := SwapResponse{
		Envelope:        Envelope{RequestID: requestID},
		RHash:           rHash,
		RejectionReason: rejection,
	}
	if resp.RejectionReason == "" {
		if err := peer.SendPacket(ctx, SwapError{Envelope: Envelope{RequestID: requestID}, RHash: rHash, ErrorMessage: reason}); err != nil {
			c.log.Warn("failed to send swap-error response", "r_hash", rHash, "error", err)
		}
		return
	}
	if err := peer.SendPacket(ctx, resp); err != nil {
		c.log.Warn("failed to send swap-error response", "r_hash", rHash, "error", err)
	}
}
