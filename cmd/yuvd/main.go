// Command yuvd runs a pixel-protocol node: it indexes Bitcoin blocks,
// checks and attaches yuv transactions into a DAG, gossips them over a
// websocket peer mesh, and serves a JSON/HTTP read-write API. Wiring
// follows the teacher's cmd/engine/main.go: every component is built
// explicitly here and handed its collaborators by parameter, nothing is
// a package global, and a best-effort "continue in degraded mode" is
// used only for the optional analytics sink — everything else the node
// needs to function at all is fatal on failure.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gin-gonic/gin"

	"github.com/rawblock/yuvd/internal/analytics"
	"github.com/rawblock/yuvd/internal/attacher"
	"github.com/rawblock/yuvd/internal/bitcoinrpc"
	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/checker"
	"github.com/rawblock/yuvd/internal/config"
	"github.com/rawblock/yuvd/internal/controller"
	"github.com/rawblock/yuvd/internal/indexer"
	"github.com/rawblock/yuvd/internal/p2p"
	"github.com/rawblock/yuvd/internal/rpcserver"
	"github.com/rawblock/yuvd/internal/store"
	"github.com/rawblock/yuvd/internal/store/bboltstore"
	"github.com/rawblock/yuvd/internal/store/memstore"
	"github.com/rawblock/yuvd/pkg/yuv"
)

func main() {
	log.Println("Starting yuvd (pixel-protocol node)...")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("FATAL: config: %v", err)
	}

	net, err := networkParams(cfg.Network)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("FATAL: store: %v", err)
	}
	defer st.Close()

	rpc, err := bitcoinrpc.New(bitcoinrpc.Config{
		Host:       cfg.BitcoinHost,
		User:       cfg.BitcoinUser,
		Pass:       cfg.BitcoinPass,
		DisableTLS: cfg.BitcoinDisableTLS,
	})
	if err != nil {
		log.Fatalf("FATAL: bitcoin rpc: %v", err)
	}
	defer rpc.Shutdown()

	eventBus := bus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	confirmationNotifier := indexer.NewConfirmationNotifier(eventBus, cfg.IndexerMaxConfirmationTime)
	announcementExtractor := &indexer.AnnouncementExtractor{Bus: eventBus}

	ix := indexer.New(rpc, st, eventBus, indexer.Params{
		Net:             net,
		YuvGenesis:      cfg.YuvGenesis,
		ChunkSize:       cfg.IndexerChunkSize,
		WorkersNumber:   cfg.IndexerWorkersNumber,
		MaxRestarts:     cfg.IndexerMaxRestarts,
		RestartInterval: cfg.IndexerRestartInterval,
	}, confirmationNotifier, announcementExtractor)

	log.Println("indexer: catching up to chain tip...")
	if err := ix.Init(ctx); err != nil {
		log.Fatalf("FATAL: indexer init: %v", err)
	}
	go ix.Run(ctx, cfg.IndexerPollingPeriod)

	checkerPool := checker.New(st, eventBus, rpc, net, cfg.CheckerPoolSize)
	go checkerPool.Run(ctx)

	att := attacher.New(st, eventBus, attacher.Params{
		TxPerPage:          cfg.AttacherTxPerPage,
		CleanupPeriod:      cfg.AttacherCleanupPeriod,
		TxOutdatedDuration: cfg.AttacherTxOutdatedDuration,
	})
	go att.Run(ctx)

	// hub is declared before its onGetData callback is built since the
	// callback answers a peer through the very hub it is attached to.
	var hub *p2p.Hub
	hub = p2p.NewHub(eventBus,
		func(id bus.PeerID, hs p2p.Handshake) {
			log.Printf("p2p: peer %s handshaked (network=%s, best_height=%d)", id, hs.Network, hs.BestHeight)
		},
		answerGetData(st, func() *p2p.Hub { return hub }),
	)

	ctl := controller.New(eventBus, hub, controller.Params{
		InvSharingInterval: cfg.ControllerInvSharingInterval,
		MaxInvSize:         cfg.ControllerMaxInvSize,
	}, func(ctx context.Context, outpoint yuv.Outpoint) error {
		return checker.RecheckFreezeParity(ctx, st, outpoint)
	})
	go ctl.Run(ctx)

	for _, addr := range cfg.P2PPeers {
		if err := hub.Dial(bus.PeerID(addr), addr); err != nil {
			log.Printf("p2p: failed to dial peer %s: %v", addr, err)
			continue
		}
		ctl.RegisterPeer(bus.PeerID(addr))
		ctl.AdvancePeer(bus.PeerID(addr), controller.PeerActive)
	}

	if cfg.AnalyticsEnabled {
		sink, err := analytics.Connect(cfg.AnalyticsDSN)
		if err != nil {
			log.Printf("WARNING: analytics sink unavailable, continuing without audit trail: %v", err)
		} else {
			if err := sink.InitSchema(); err != nil {
				log.Printf("WARNING: analytics schema init failed: %v", err)
			}
			go sink.Run(ctx, eventBus, st)
			defer sink.Close()
		}
	}

	p2pRouter := gin.Default()
	p2pRouter.GET("/gossip", hub.Accept)
	p2pServer := &http.Server{Addr: cfg.P2PListenAddr, Handler: p2pRouter}
	go func() {
		log.Printf("p2p: listening on %s", cfg.P2PListenAddr)
		if err := p2pServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("p2p: listener stopped: %v", err)
		}
	}()

	rpcRouter := rpcserver.SetupRouter(st, eventBus, rpc, net)
	rpcServer := &http.Server{Addr: cfg.RPCListenAddr, Handler: rpcRouter}
	go func() {
		log.Printf("rpc: listening on %s", cfg.RPCListenAddr)
		if err := rpcServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("rpc: listener stopped: %v", err)
		}
	}()

	waitForShutdown(cancel, cfg.ShutdownTimeout, p2pServer, rpcServer)
}

// answerGetData builds the Hub's inbound-GetData callback: every
// requested txid that the store actually holds is encoded and sent back
// to the requesting peer as a single YuvTxs message; txids we don't hold
// are silently skipped, matching an ordinary DATA-miss.
func answerGetData(st store.Store, hub func() *p2p.Hub) func(bus.PeerID, [][32]byte) {
	return func(from bus.PeerID, txids [][32]byte) {
		ctx := context.Background()
		found := make([]*yuv.Tx, 0, len(txids))
		for _, txid := range txids {
			tx, ok, err := st.YuvTx(ctx, txid)
			if err != nil || !ok {
				continue
			}
			found = append(found, tx)
		}
		if len(found) == 0 {
			return
		}

		msg, err := p2p.EncodeYuvTxs(found)
		if err != nil {
			log.Printf("p2p: encode answer for %s failed: %v", from, err)
			return
		}
		if err := hub().SendYuvTxs(from, msg); err != nil {
			log.Printf("p2p: send answer to %s failed: %v", from, err)
		}
	}
}

func waitForShutdown(cancel context.CancelFunc, timeout time.Duration, servers ...*http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
	log.Println("shutdown complete")
}

func networkParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "mainnet", "":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, &unknownNetworkError{name}
	}
}

type unknownNetworkError struct{ name string }

func (e *unknownNetworkError) Error() string {
	return "unknown network " + e.name + " (want mainnet, testnet3, or regtest)"
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StorageDriver {
	case "memory":
		return memstore.New(), nil
	case "bbolt", "":
		return bboltstore.Open(cfg.StoragePath)
	default:
		return nil, &unknownStorageDriverError{cfg.StorageDriver}
	}
}

type unknownStorageDriverError struct{ driver string }

func (e *unknownStorageDriverError) Error() string {
	return "unknown storage.driver " + e.driver + " (want bbolt or memory)"
}
