package main

import (
	"context"
	"fmt"

	"github.com/dexnode/swapcore/internal/config"
	"github.com/dexnode/swapcore/internal/swap"
)

// unconfiguredChainClient stands in for a currency's LND setup verification,
// reporting IsConnected() == false until a real chain-daemon integration is
// wired up. Dialing LND's gRPC interface per currency is consumed only
// through the ChainClient interface, so swapd ships only this placeholder.
type unconfiguredChainClient struct {
	chain config.Chain
}

func newUnconfiguredChainClient(chain config.Chain) swap.ChainClient {
	return &unconfiguredChainClient{chain: chain}
}

func (c *unconfiguredChainClient) IsConnected() bool { return false }

func (c *unconfiguredChainClient) CLTVDelta() uint32 { return c.chain.CLTVDelta }

func (c *unconfiguredChainClient) QueryRoutes(ctx context.Context, amount int64, finalCLTVDelta uint32, numRoutes int, pubKey string) ([]swap.Route, error) {
	return nil, fmt.Errorf("chain client for %s not configured", c.chain.Currency)
}

func (c *unconfiguredChainClient) GetInfo(ctx context.Context) (swap.ChainInfo, error) {
	return swap.ChainInfo{}, fmt.Errorf("chain client for %s not configured", c.chain.Currency)
}

func (c *unconfiguredChainClient) SendPaymentSync(ctx context.Context, req swap.PaymentRequest) (swap.PaymentResult, error) {
	return swap.PaymentResult{}, fmt.Errorf("chain client for %s not configured", c.chain.Currency)
}

func (c *unconfiguredChainClient) SendToRouteSync(ctx context.Context, req swap.RouteSendRequest) (swap.PaymentResult, error) {
	return swap.PaymentResult{}, fmt.Errorf("chain client for %s not configured", c.chain.Currency)
}
