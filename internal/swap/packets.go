package swap

import "github.com/google/uuid"

// RejectionReason enumerates the closed set of reasons a SwapResponse may
// carry when the maker declines a request.
type RejectionReason string

const (
	RejectPairNotSupported RejectionReason = "PAIR_NOT_SUPPORTED"
	RejectOrderNotFound    RejectionReason = "ORDER_NOT_FOUND"
	RejectOrderUnavailable RejectionReason = "ORDER_UNAVAILABLE"
	RejectNoRoute          RejectionReason = "NO_ROUTE"
)

// Envelope wraps every peer packet with a unique request id for
// correlating a response/notification back to the request that caused it.
type Envelope struct {
	RequestID string
}

// NewEnvelope creates an envelope with a fresh request id.
func NewEnvelope() Envelope {
	return Envelope{RequestID: uuid.NewString()}
}

// SwapRequest is the outbound packet an initiator sends to open a deal.
type SwapRequest struct {
	Envelope

	RHash            string
	PairID           string
	OrderID          string
	ProposedQuantity float64
	TakerCurrency    string
	MakerCurrency    string
	TakerAmount      int64
	MakerAmount      int64
	TakerCLTVDelta   uint32
}

// SwapResponse is the maker's reply to a SwapRequest: either acceptance
// (Quantity + MakerCLTVDelta set) or rejection (RejectionReason set).
type SwapResponse struct {
	Envelope

	RHash           string
	Quantity        float64
	HasQuantity     bool
	MakerCLTVDelta  uint32
	HasCLTVDelta    bool
	RejectionReason RejectionReason
}

// SwapComplete notifies the peer that this side has observed the swap
// complete.
type SwapComplete struct {
	Envelope

	RHash string
}

// SwapError notifies the peer (as a response or a standalone notification)
// that this side has failed the deal.
type SwapError struct {
	Envelope

	RHash        string
	ErrorMessage string
}
