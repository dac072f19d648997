// Command swapd runs the cross-chain swap coordinator node.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/dexnode/swapcore/internal/config"
	"github.com/dexnode/swapcore/internal/peernet"
	"github.com/dexnode/swapcore/internal/swap"
	"github.com/dexnode/swapcore/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir        = flag.String("data-dir", "~/.swapcore", "Data directory")
		configFile     = flag.String("config", "", "Config file path; only its directory is used and the file read there is always config.yaml (default: <data-dir>/config.yaml)")
		listenAddr     = flag.String("listen", "", "Listen address (multiaddr), overrides config")
		enableMDNS     = flag.Bool("mdns", true, "Enable mDNS discovery")
		enableDHT      = flag.Bool("dht", true, "Enable DHT discovery")
		testnet        = flag.Bool("testnet", false, "Run on testnet (separate network and data)")
		bootstrapPeers = flag.String("bootstrap", "", "Bootstrap peers (comma-separated multiaddrs)")
		logLevel       = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion    = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("swapd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	effectiveDataDir := *dataDir
	if *testnet {
		effectiveDataDir = filepath.Join(*dataDir, "testnet")
	}

	var cfg *peernet.Config
	var err error
	if *configFile != "" {
		cfg, err = peernet.LoadConfig(filepath.Dir(*configFile))
	} else {
		cfg, err = peernet.LoadConfig(effectiveDataDir)
	}
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	if *listenAddr != "" {
		cfg.Network.ListenAddrs = []string{*listenAddr}
	}
	cfg.Network.EnableMDNS = *enableMDNS
	cfg.Network.EnableDHT = *enableDHT
	cfg.Logging.Level = *logLevel
	cfg.Storage.DataDir = effectiveDataDir

	if *testnet {
		cfg.NetworkType = config.Testnet
	} else {
		cfg.NetworkType = config.Mainnet
	}

	if *bootstrapPeers != "" {
		cfg.Network.BootstrapPeers = parseBootstrapPeers(*bootstrapPeers)
	}

	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)
	log.Info("config loaded", "path", peernet.ConfigPath(effectiveDataDir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients := map[config.Currency]swap.ChainClient{
		config.BTC: newUnconfiguredChainClient(config.MustGetChain(config.BTC)),
		config.LTC: newUnconfiguredChainClient(config.MustGetChain(config.LTC)),
	}
	coordinator := swap.NewCoordinator(clients, nil)
	coordinator.OnEvent(func(ev swap.SwapEvent) {
		switch ev.Type {
		case swap.EventSwapPaid:
			log.Info("swap.paid", "r_hash", ev.RHash)
		case swap.EventSwapFailed:
			log.Warn("swap.failed", "r_hash", ev.RHash)
		}
	})
	log.Info("swap coordinator initialized", "pair", config.SupportedPair)

	log.Info("starting swapd p2p transport...")
	n, err := peernet.New(ctx, cfg)
	if err != nil {
		log.Fatal("failed to create node", "error", err)
	}

	peerStore := peernet.NewPeerStore()

	// onSwapRequest is left nil: matching an inbound SwapRequest against a
	// local maker order is an order-book decision for a layer above this
	// package, so every inbound request is rejected as ORDER_NOT_FOUND
	// until a real order book is wired in.
	streamSvc := peernet.NewStreamService(n, coordinator, peerStore, cfg.Network.StreamTimeout, nil)
	streamSvc.Start()
	defer streamSvc.Stop()

	if err := n.Start(); err != nil {
		log.Fatal("failed to start node", "error", err)
	}

	nodeLog := log.Component("p2p")
	n.OnPeerConnected(func(p peer.ID) {
		nodeLog.Info("peer connected", "peer", shortID(p), "total", n.PeerCount())
	})
	n.OnPeerDisconnected(func(p peer.ID) {
		peerStore.Forget(p)
		nodeLog.Info("peer disconnected", "peer", shortID(p), "total", n.PeerCount())
	})

	printBanner(log, n, cfg)

	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Info("status", "peers", n.PeerCount(), "deals", len(coordinator.Registry().Snapshot()), "uptime", n.Uptime().Round(time.Second))
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down...")

	cancel()
	if err := n.Stop(); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("goodbye!")
}

func printBanner(log *logging.Logger, n *peernet.Node, cfg *peernet.Config) {
	networkLabel := "mainnet"
	if cfg.NetworkType == config.Testnet {
		networkLabel = "TESTNET"
	}

	log.Info("")
	log.Info("=================================================")
	log.Infof("  swapd cross-chain swap coordinator (%s)", networkLabel)
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  Peer ID: %s", n.ID().String())
	log.Info("")
	log.Info("  Listening on:")
	for _, addr := range n.Addrs() {
		log.Infof("    %s/p2p/%s", addr.String(), n.ID().String())
	}
	log.Info("")
	log.Infof("  Pair: %s", config.SupportedPair)
	log.Infof("  mDNS: %v | DHT: %v", cfg.Network.EnableMDNS, cfg.Network.EnableDHT)
	log.Info("=================================================")
	log.Info("")
}

func parseBootstrapPeers(s string) []string {
	if s == "" {
		return nil
	}
	var peers []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			peers = append(peers, p)
		}
	}
	return peers
}

func shortID(p peer.ID) string {
	s := p.String()
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
