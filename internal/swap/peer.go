package swap

import "context"

// Packet is the sum type of outbound peer packets the coordinator sends.
// It exists only to give SendPacket a single parameter type; the peer
// transport is expected to type-switch on it.
type Packet interface {
	isPacket()
}

func (SwapRequest) isPacket()  {}
func (SwapResponse) isPacket() {}
func (SwapComplete) isPacket() {}
func (SwapError) isPacket()    {}

// Peer is the abstract interface to the counterparty node; the concrete
// P2P transport lives outside this package (see internal/peernet).
type Peer interface {
	// NodePubKey identifies the remote node itself (not a chain pubkey).
	NodePubKey() string

	// LNDPubKey returns the peer's advertised chain-network node key for
	// currency, or "" if the peer hasn't advertised one.
	LNDPubKey(currency string) (string, bool)

	// SendPacket transmits a packet to this peer.
	SendPacket(ctx context.Context, pkt Packet) error
}
