package swap

import (
	"context"
	"sync"
)

// fakeChainClient is a hand-written test double for ChainClient; no
// mocking framework is used for a consumed interface this small.
type fakeChainClient struct {
	mu sync.Mutex

	connected bool
	cltvDelta uint32

	routes      []Route
	routesErr   error
	info        ChainInfo
	infoErr     error

	paymentResult PaymentResult
	paymentErr    error

	routeSendResult PaymentResult
	routeSendErr    error

	lastPaymentReq PaymentRequest
	lastRouteReq   RouteSendRequest
}

func newFakeChainClient(cltvDelta uint32) *fakeChainClient {
	return &fakeChainClient{connected: true, cltvDelta: cltvDelta}
}

func (f *fakeChainClient) IsConnected() bool { return f.connected }
func (f *fakeChainClient) CLTVDelta() uint32  { return f.cltvDelta }

func (f *fakeChainClient) QueryRoutes(ctx context.Context, amount int64, finalCLTVDelta uint32, numRoutes int, pubKey string) ([]Route, error) {
	return f.routes, f.routesErr
}

func (f *fakeChainClient) GetInfo(ctx context.Context) (ChainInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeChainClient) SendPaymentSync(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	f.mu.Lock()
	f.lastPaymentReq = req
	f.mu.Unlock()
	return f.paymentResult, f.paymentErr
}

func (f *fakeChainClient) SendToRouteSync(ctx context.Context, req RouteSendRequest) (PaymentResult, error) {
	f.mu.Lock()
	f.lastRouteReq = req
	f.mu.Unlock()
	return f.routeSendResult, f.routeSendErr
}

// fakePeer is a hand-written test double for Peer.
type fakePeer struct {
	mu sync.Mutex

	pubKey     string
	lndPubKeys map[string]string

	sent    []Packet
	sendErr error
}

func newFakePeer(pubKey string) *fakePeer {
	return &fakePeer{pubKey: pubKey, lndPubKeys: make(map[string]string)}
}

func (p *fakePeer) NodePubKey() string { return p.pubKey }

func (p *fakePeer) LNDPubKey(currency string) (string, bool) {
	key, ok := p.lndPubKeys[currency]
	return key, ok
}

func (p *fakePeer) SendPacket(ctx context.Context, pkt Packet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, pkt)
	return nil
}

func (p *fakePeer) lastSent() Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sent) == 0 {
		return nil
	}
	return p.sent[len(p.sent)-1]
}
