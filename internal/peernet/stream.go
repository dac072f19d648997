// Package peernet's stream.go carries swap packets over direct libp2p
// streams, adapting the length-prefixed framing and request/ACK pattern
// used elsewhere in this node's direct-messaging layer to the four swap
// packet types.
package peernet

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"

	"github.com/dexnode/swapcore/internal/swap"
	"github.com/dexnode/swapcore/pkg/logging"
)

// SwapStreamProtocol is the protocol ID for direct swap-packet streams.
const SwapStreamProtocol protocol.ID = "/swapcore/swap/1.0.0"

const maxMessageSize = 64 * 1024

const (
	kindSwapRequest  = "swap_request"
	kindSwapResponse = "swap_response"
	kindSwapComplete = "swap_complete"
	kindSwapError    = "swap_error"
)

type wireMessage struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type ackPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func encodePacket(pkt swap.Packet) (wireMessage, error) {
	var kind string
	switch pkt.(type) {
	case swap.SwapRequest:
		kind = kindSwapRequest
	case swap.SwapResponse:
		kind = kindSwapResponse
	case swap.SwapComplete:
		kind = kindSwapComplete
	case swap.SwapError:
		kind = kindSwapError
	default:
		return wireMessage{}, fmt.Errorf("peernet: unknown packet type %T", pkt)
	}
	payload, err := json.Marshal(pkt)
	if err != nil {
		return wireMessage{}, fmt.Errorf("peernet: marshal packet: %w", err)
	}
	return wireMessage{Kind: kind, Payload: payload}, nil
}

// SwapRequestHandler decides whether to accept an inbound SwapRequest. The
// decision itself (which local order it fills, at what quantity) belongs
// to the order book, which sits outside this package's scope.
type SwapRequestHandler func(ctx context.Context, req swap.SwapRequest, from swap.Peer) (swap.AcceptedOrder, bool)

// StreamService registers the swap-packet protocol handler on a Node and
// dispatches inbound packets to a Coordinator.
type StreamService struct {
	node        *Node
	coordinator *swap.Coordinator
	store       *PeerStore
	log         *logging.Logger
	timeout     time.Duration

	onSwapRequest SwapRequestHandler
}

// NewStreamService builds a StreamService. onSwapRequest may be nil, in
// which case every inbound SwapRequest is rejected as ORDER_NOT_FOUND.
func NewStreamService(n *Node, coordinator *swap.Coordinator, store *PeerStore, timeout time.Duration, onSwapRequest SwapRequestHandler) *StreamService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StreamService{
		node:          n,
		coordinator:   coordinator,
		store:         store,
		log:           logging.GetDefault().Component("peernet-stream"),
		timeout:       timeout,
		onSwapRequest: onSwapRequest,
	}
}

// Start registers the stream handler with the libp2p host.
func (s *StreamService) Start() {
	s.node.Host().SetStreamHandler(SwapStreamProtocol, s.handleStream)
	s.log.Info("swap stream handler started", "protocol", SwapStreamProtocol)
}

// Stop removes the stream handler.
func (s *StreamService) Stop() {
	s.node.Host().RemoveStreamHandler(SwapStreamProtocol)
}

// PeerFor returns a swap.Peer bound to a specific remote node.
func (s *StreamService) PeerFor(id peer.ID) swap.Peer {
	return &remotePeer{id: id, svc: s}
}

func (s *StreamService) handleStream(stream network.Stream) {
	defer stream.Close()

	remote := stream.Conn().RemotePeer()
	stream.SetDeadline(time.Now().Add(s.timeout))

	msgBytes, err := readLengthPrefixed(bufio.NewReader(stream))
	if err != nil {
		s.log.Warn("failed to read swap packet", "peer", shortID(remote), "error", err)
		return
	}

	var msg wireMessage
	if err := json.Unmarshal(msgBytes, &msg); err != nil {
		s.log.Warn("failed to parse swap packet", "peer", shortID(remote), "error", err)
		s.sendAck(stream, false, "malformed message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ackOK, ackErr := s.dispatch(ctx, remote, msg)
	s.sendAck(stream, ackOK, ackErr)
}

func (s *StreamService) dispatch(ctx context.Context, remote peer.ID, msg wireMessage) (ok bool, errMsg string) {
	from := s.PeerFor(remote)

	switch msg.Kind {
	case kindSwapRequest:
		var req swap.SwapRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return false, err.Error()
		}
		if s.onSwapRequest == nil {
			reject := swap.SwapResponse{
				Envelope:        swap.Envelope{RequestID: req.RequestID},
				RHash:           req.RHash,
				RejectionReason: swap.RejectOrderNotFound,
			}
			if err := from.SendPacket(ctx, reject); err != nil {
				s.log.Warn("failed to send ORDER_NOT_FOUND rejection", "peer", shortID(remote), "error", err)
			}
			return false, "no order matching configured"
		}
		accepted, match := s.onSwapRequest(ctx, req, from)
		if !match {
			return true, ""
		}
		if _, err := s.coordinator.AcceptDeal(ctx, accepted, req, from); err != nil {
			return false, err.Error()
		}
		return true, ""

	case kindSwapResponse:
		var resp swap.SwapResponse
		if err := json.Unmarshal(msg.Payload, &resp); err != nil {
			return false, err.Error()
		}
		if err := s.coordinator.HandleSwapResponse(ctx, resp, from); err != nil {
			return false, err.Error()
		}
		return true, ""

	case kindSwapComplete:
		var comp swap.SwapComplete
		if err := json.Unmarshal(msg.Payload, &comp); err != nil {
			return false, err.Error()
		}
		if err := s.coordinator.HandleSwapComplete(comp); err != nil {
			return false, err.Error()
		}
		return true, ""

	case kindSwapError:
		var swapErr swap.SwapError
		if err := json.Unmarshal(msg.Payload, &swapErr); err != nil {
			return false, err.Error()
		}
		if err := s.coordinator.HandleSwapError(swapErr); err != nil {
			return false, err.Error()
		}
		return true, ""

	default:
		return false, fmt.Sprintf("unknown packet kind %q", msg.Kind)
	}
}

func (s *StreamService) sendAck(stream network.Stream, success bool, errMsg string) {
	data, err := json.Marshal(ackPayload{Success: success, Error: errMsg})
	if err != nil {
		s.log.Warn("failed to marshal ack", "error", err)
		return
	}
	if err := writeLengthPrefixed(stream, data); err != nil {
		s.log.Warn("failed to send ack", "error", err)
	}
}

// remotePeer is the concrete swap.Peer implementation: one remote node,
// reachable over a fresh stream per packet.
type remotePeer struct {
	id  peer.ID
	svc *StreamService
}

func (p *remotePeer) NodePubKey() string { return p.id.String() }

func (p *remotePeer) LNDPubKey(currency string) (string, bool) {
	return p.svc.store.LNDPubKey(p.id, currency)
}

func (p *remotePeer) SendPacket(ctx context.Context, pkt swap.Packet) error {
	msg, err := encodePacket(pkt)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("peernet: marshal wire message: %w", err)
	}

	stream, err := p.svc.node.Host().NewStream(ctx, p.id, SwapStreamProtocol)
	if err != nil {
		return fmt.Errorf("peernet: open stream: %w", err)
	}
	defer stream.Close()

	deadline := time.Now().Add(p.svc.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	stream.SetDeadline(deadline)

	if err := writeLengthPrefixed(stream, data); err != nil {
		return fmt.Errorf("peernet: send packet: %w", err)
	}

	ackBytes, err := readLengthPrefixed(bufio.NewReader(stream))
	if err != nil {
		return fmt.Errorf("peernet: read ack: %w", err)
	}
	var ack ackPayload
	if err := json.Unmarshal(ackBytes, &ack); err != nil {
		return fmt.Errorf("peernet: parse ack: %w", err)
	}
	if !ack.Success {
		return fmt.Errorf("peernet: packet rejected by peer: %s", ack.Error)
	}
	return nil
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read length: %w", err)
	}
	if length > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d > %d", length, maxMessageSize)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return data, nil
}

func writeLengthPrefixed(w io.Writer, data []byte) error {
	if len(data) > maxMessageSize {
		return fmt.Errorf("message too large: %d > %d", len(data), maxMessageSize)
	}
	length := uint32(len(data))
	if err := binary.Write(w, binary.BigEndian, length); err != nil {
		return fmt.Errorf("failed to write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}
