// Package swap implements the cross-chain atomic swap deal state machine:
// deal life-cycle tracking, the initiator/responder handshake, CLTV scaling,
// preimage resolution, and completion/error dispatch. Order matching, peer
// transport, and chain daemons are consumed only through the interfaces in
// this package (Peer, ChainClient).
package swap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/dexnode/swapcore/internal/config"
	"github.com/dexnode/swapcore/pkg/helpers"
)

// Role identifies which side of a deal this node is playing.
type Role string

const (
	RoleTaker Role = "taker"
	RoleMaker Role = "maker"
)

// Phase is the deal's position in its per-role lifecycle. Phases advance
// strictly and only while State == Active.
type Phase string

const (
	PhaseSwapCreated   Phase = "SwapCreated"
	PhaseSwapRequested Phase = "SwapRequested" // taker only
	PhaseSwapAgreed    Phase = "SwapAgreed"     // maker only
	PhaseAmountSent    Phase = "AmountSent"
	PhaseAmountReceived Phase = "AmountReceived"
	PhaseSwapCompleted Phase = "SwapCompleted"
)

// State is orthogonal to Phase: the deal's overall outcome bucket.
type State string

const (
	StateActive    State = "active"
	StateError     State = "error"
	StateCompleted State = "completed"
)

// Deal is the central entity of the coordinator: one record per attempted
// swap, keyed by R_Hash. Mutated only by the owning node's state machine
// and resolver; never observed mid-transition by another goroutine (the
// owning Registry/Coordinator serializes access per-deal).
type Deal struct {
	RHash     chainhash.Hash
	RPreimage chainhash.Hash
	HasPreimage bool

	MyRole      Role
	Phase       Phase
	State       State
	StateReason string

	PeerPubKey string

	OrderID      string
	LocalOrderID string
	PairID       string
	Price        float64

	TakerCurrency config.Currency
	MakerCurrency config.Currency
	TakerAmount   int64
	MakerAmount   int64

	TakerCLTVDelta uint32
	MakerCLTVDelta uint32

	ProposedQuantity float64
	Quantity         float64
	HasQuantity      bool

	MakerToTakerRoutes []Route
	TakerPubKey        string // maker side only: taker's chain-network node key

	CreateTime     time.Time
	ExecuteTime    time.Time
	CompletionTime time.Time

	done chan Outcome
}

// Outcome is the terminal result delivered on Deal.Done().
type Outcome struct {
	Completed bool
	Result    SwapResult // valid iff Completed
	Deal      *Deal      // the deal itself; set for both outcomes
}

// RHashHex returns the deal's payment hash as a lowercase hex string, the
// form used in peer packets and logs.
func (d *Deal) RHashHex() string {
	return hex.EncodeToString(d.RHash[:])
}

// parseRHash decodes a peer-packet r_hash field back into its chainhash.Hash
// form. Display (RHashHex) and wire encoding both stay plain big-endian hex,
// unlike chainhash's block/txid String() method, which reverses byte order;
// only the 32-byte array shape is reused here.
func parseRHash(s string) (chainhash.Hash, error) {
	var out chainhash.Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("swap: invalid r_hash %q: %w", s, err)
	}
	if len(b) != chainhash.HashSize {
		return out, fmt.Errorf("swap: r_hash %q is %d bytes, want %d", s, len(b), chainhash.HashSize)
	}
	copy(out[:], b)
	return out, nil
}

// newDeal builds the common fields shared by initiator and responder deal
// creation. now is injected so the state machine never calls time.Now
// itself outside of this one seam, keeping phase timestamps testable.
func newDeal(role Role, now time.Time) *Deal {
	return &Deal{
		MyRole:     role,
		Phase:      PhaseSwapCreated,
		State:      StateActive,
		CreateTime: now,
		done:       make(chan Outcome, 1),
	}
}

// Done returns a channel that receives exactly one Outcome when the deal
// is paid (reaches AmountReceived) or first fails, in addition to (not instead of) the coordinator's
// process-wide swap.paid/swap.failed handlers. Callers that only care about
// one specific deal can select on this without global-listener bookkeeping.
func (d *Deal) Done() <-chan Outcome {
	return d.done
}

// IsStale reports whether a deal still sitting in Active is older than
// maxAge as of now. There is no background sweep timer here: this is a
// read-only hint for an external caller deciding whether to garbage-collect
// an abandoned deal; it never mutates the deal or acts on its own.
func (d *Deal) IsStale(now time.Time, maxAge time.Duration) bool {
	return d.State == StateActive && now.Sub(d.CreateTime) > maxAge
}

// Summary is a read-only snapshot of a deal for introspection/observability
// callers (an RPC or CLI layer) that should not be able to reach into
// registry internals.
type Summary struct {
	RHash       string
	MyRole      Role
	Phase       Phase
	State       State
	StateReason string
	PairID      string
	Quantity    float64
	TakerAmount        int64
	MakerAmount        int64
	TakerAmountDisplay string // whole-coin decimal, e.g. "0.015"
	MakerAmountDisplay string
	PeerPubKey         string
}

// Summary builds a read-only snapshot of the deal.
func (d *Deal) Summary() Summary {
	return Summary{
		RHash:              d.RHashHex(),
		MyRole:             d.MyRole,
		Phase:              d.Phase,
		State:              d.State,
		StateReason:        d.StateReason,
		PairID:             d.PairID,
		Quantity:           d.Quantity,
		TakerAmount:        d.TakerAmount,
		MakerAmount:        d.MakerAmount,
		TakerAmountDisplay: formatSubunits(d.TakerAmount, d.TakerCurrency),
		MakerAmountDisplay: formatSubunits(d.MakerAmount, d.MakerCurrency),
		PeerPubKey:         d.PeerPubKey,
	}
}

// formatSubunits renders an integer subunit amount as a whole-coin decimal
// string for the given currency, e.g. 1_500_000 satoshis -> "0.015".
func formatSubunits(amount int64, currency config.Currency) string {
	chain, ok := config.GetChain(currency)
	if !ok || amount < 0 {
		return ""
	}
	decimals := uint8(0)
	for factor := chain.SubunitFactor; factor > 1; factor /= 10 {
		decimals++
	}
	return helpers.FormatAmount(uint64(amount), decimals)
}

// HashPreimage computes the payment hash for a preimage: RHash must equal
// SHA-256(RPreimage) whenever RPreimage is set.
func HashPreimage(preimage chainhash.Hash) chainhash.Hash {
	return chainhash.Hash(sha256.Sum256(preimage[:]))
}
