package swap

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/dexnode/swapcore/internal/config"
	"github.com/dexnode/swapcore/pkg/logging"
)

// Clock abstracts time.Now so every timestamp the state machine writes
// (CreateTime, ExecuteTime, CompletionTime) is testable without a real
// clock.
type Clock func() time.Time

// Coordinator wires the registry, chain clients, and peer transport
// together and drives the initiator/responder/resolver/dispatch protocol.
// It is the one place both roles' code shares: registering deals, emitting
// events, and looking up chain clients by currency.
type Coordinator struct {
	registry *Registry
	clients  map[config.Currency]ChainClient
	now      Clock
	log      *logging.Logger

	mu       sync.Mutex
	handlers []EventHandler
}

// NewCoordinator builds a Coordinator with an empty registry. clients maps
// each currency this node trades to its chain daemon client; now defaults
// to time.Now when nil.
func NewCoordinator(clients map[config.Currency]ChainClient, now Clock) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		registry: NewRegistry(),
		clients:  clients,
		now:      now,
		log:      logging.GetDefault().Component("swap"),
	}
}

// Registry exposes the deal registry for lookup by inbound message
// handlers (Completion/Error Dispatch, the Resolver).
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// OnEvent registers a handler invoked for every swap.paid/swap.failed
// event. Handlers are invoked concurrently with each other and with the
// caller, on a private goroutine per emission, so a slow or panicking
// handler cannot block the state machine.
func (c *Coordinator) OnEvent(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// emit dispatches a SwapEvent to every registered handler. Handlers are
// copied out under the lock so emission never blocks OnEvent callers or
// races a concurrent OnEvent registration. Each handler runs on its own
// goroutine rather than inline, so a slow or panicking handler can't stall
// the deal that triggered it or take down the caller.
func (c *Coordinator) emit(ev SwapEvent) {
	c.mu.Lock()
	handlers := make([]EventHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		go func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("event handler panicked", "r_hash", ev.RHash, "panic", r)
				}
			}()
			h(ev)
		}(h)
	}
}

func (c *Coordinator) emitPaid(d *Deal, result SwapResult) {
	ev := SwapEvent{Type: EventSwapPaid, RHash: d.RHashHex(), Result: result, Timestamp: c.now()}
	d.resolveDone(true, result)
	c.emit(ev)
}

func (c *Coordinator) emitFailed(d *Deal) {
	ev := SwapEvent{Type: EventSwapFailed, RHash: d.RHashHex(), Deal: d, Timestamp: c.now()}
	d.resolveDone(false, SwapResult{})
	c.emit(ev)
}

// fail transitions d to Error and, only on the first such transition for
// this deal, emits swap.failed. A deal that already reached AmountReceived
// has emitted swap.paid, so no swap.failed follows it.
func (c *Coordinator) fail(d *Deal, reason string) {
	first := d.Fail(reason)
	c.log.Warn("deal failed", "r_hash", d.RHashHex(), "reason", reason, "first", first)
	if first && d.Phase != PhaseAmountReceived {
		c.emitFailed(d)
	}
}

// client looks up the chain client for a currency. The bool result is
// false for a currency this node doesn't have a configured client for,
// which the caller reports as UnsupportedCurrency.
func (c *Coordinator) client(currency config.Currency) (ChainClient, bool) {
	cl, ok := c.clients[currency]
	return cl, ok
}

// verifyLNDSetup checks that both local chain clients are connected and the
// peer has advertised a valid chain pubkey for both currencies.
func verifyLNDSetup(ctx context.Context, c *Coordinator, peer Peer, takerCurrency, makerCurrency config.Currency) (reason string, ok bool) {
	takerClient, hasTaker := c.client(takerCurrency)
	makerClient, hasMaker := c.client(makerCurrency)
	if !hasTaker || !takerClient.IsConnected() {
		return fmt.Sprintf("setup failure: local chain client for %s is not connected", takerCurrency), false
	}
	if !hasMaker || !makerClient.IsConnected() {
		return fmt.Sprintf("setup failure: local chain client for %s is not connected", makerCurrency), false
	}
	takerPubKey, hasTakerPubKey := peer.LNDPubKey(takerCurrency.String())
	if !hasTakerPubKey {
		return fmt.Sprintf("setup failure: peer has not advertised a chain pubkey for %s", takerCurrency), false
	}
	makerPubKey, hasMakerPubKey := peer.LNDPubKey(makerCurrency.String())
	if !hasMakerPubKey {
		return fmt.Sprintf("setup failure: peer has not advertised a chain pubkey for %s", makerCurrency), false
	}

	if err := validateChainPubKey(takerPubKey); err != nil {
		return fmt.Sprintf("setup failure: peer's %s chain pubkey is invalid: %v", takerCurrency, err), false
	}
	if err := validateChainPubKey(makerPubKey); err != nil {
		return fmt.Sprintf("setup failure: peer's %s chain pubkey is invalid: %v", makerCurrency, err), false
	}

	return "ok", true
}

// validateChainPubKey decodes a peer-advertised hex-encoded chain pubkey and
// checks it parses as a valid secp256k1 point.
func validateChainPubKey(hexPubKey string) error {
	raw, err := hex.DecodeString(hexPubKey)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	if _, err := btcec.ParsePubKey(raw); err != nil {
		return fmt.Errorf("invalid secp256k1 pubkey: %w", err)
	}
	return nil
}
