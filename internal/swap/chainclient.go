package swap

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Route is an opaque payment route returned by QueryRoutes. TotalTimelock
// is the only field the swap protocol inspects directly; everything else
// is forwarded verbatim to SendToRouteSync.
type Route struct {
	TotalTimelock uint32
}

// ChainInfo is the subset of chain-daemon state the protocol consults.
type ChainInfo struct {
	BlockHeight uint32
}

// PaymentRequest is the argument to SendPaymentSync: a single-hop-style
// send to a known destination pubkey.
type PaymentRequest struct {
	Amount         int64
	Destination    string
	PaymentHash    chainhash.Hash
	FinalCLTVDelta uint32
}

// RouteSendRequest is the argument to SendToRouteSync: forwarding along a
// precomputed route rather than looking one up again.
type RouteSendRequest struct {
	Routes      []Route
	PaymentHash chainhash.Hash
}

// PaymentResult is returned by both send operations. PaymentError is
// non-empty on failure; PaymentPreimage is populated on success.
type PaymentResult struct {
	PaymentError    string
	PaymentPreimage chainhash.Hash
}

// HeldHTLC is the payload passed to a Resolver when the local chain client
// is holding an inbound HTLC pending resolution.
type HeldHTLC struct {
	Hash          chainhash.Hash
	AmountMsat    int64
	TimeoutHeight uint32
	HeightNow     uint32
}

// ChainClient is the abstract interface to a local payment-channel daemon,
// one per currency. The coordinator only ever calls these methods; the
// concrete daemon integration lives outside this package entirely.
type ChainClient interface {
	// IsConnected reports whether the daemon is reachable right now.
	IsConnected() bool

	// CLTVDelta is this chain client's configured final-hop timelock delta.
	CLTVDelta() uint32

	// QueryRoutes asks for up to numRoutes routes of amount subunits to
	// pubKey, requesting finalCLTVDelta at the final hop.
	QueryRoutes(ctx context.Context, amount int64, finalCLTVDelta uint32, numRoutes int, pubKey string) ([]Route, error)

	// GetInfo returns current chain daemon state (principally block height).
	GetInfo(ctx context.Context) (ChainInfo, error)

	// SendPaymentSync performs a synchronous send to a destination pubkey,
	// blocking until the payment settles or fails.
	SendPaymentSync(ctx context.Context, req PaymentRequest) (PaymentResult, error)

	// SendToRouteSync performs a synchronous send along a precomputed
	// route set, blocking until the payment settles or fails.
	SendToRouteSync(ctx context.Context, req RouteSendRequest) (PaymentResult, error)
}
