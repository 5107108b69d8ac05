// Package cli is epochmgrd's composition root: flag parsing, zap bootstrap,
// and wiring every collaborator (storage, state computer, safety rules,
// network sender, metrics) into an internal/epoch.Manager, then running the
// websocket listener and metrics endpoint under an errgroup until signaled
// to stop. Grounded on the teacher's cmd/empower1d/cli/cli.go (cobra root +
// subcommand shape) and cmd/empower1d/main.go (explicit, by-hand collaborator
// wiring — no DI container, see DESIGN.md).
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/empower1/epochcore/internal/config"
	"github.com/empower1/epochcore/internal/epoch"
	"github.com/empower1/epochcore/internal/mempool"
	"github.com/empower1/epochcore/internal/metrics"
	"github.com/empower1/epochcore/internal/network"
	"github.com/empower1/epochcore/internal/safetyrules"
	"github.com/empower1/epochcore/internal/statecomputer"
	"github.com/empower1/epochcore/internal/storage"
	"github.com/empower1/epochcore/internal/validatorset"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	listenAddr  string
	metricsAddr string
	dataDir     string
	keyFile     string
	genesisFile string
	nodeAddr    string
}

// NewRootCmd builds epochmgrd's cobra command tree.
func NewRootCmd() *cobra.Command {
	opts := &serveOptions{}

	root := &cobra.Command{
		Use:   "epochmgrd",
		Short: "epochmgrd runs a single validator's epoch lifecycle and message admission layer.",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the validator node and block until signaled to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	serve.Flags().StringVar(&opts.listenAddr, "listen", ":7000", "websocket listen address for peer connections")
	serve.Flags().StringVar(&opts.metricsAddr, "metrics-addr", ":9100", "Prometheus metrics listen address")
	serve.Flags().StringVar(&opts.dataDir, "data-dir", "./data", "directory holding this node's BoltDB recovery store")
	serve.Flags().StringVar(&opts.keyFile, "key-file", "./data/identity.pem", "path to this validator's ECDSA identity; generated if absent")
	serve.Flags().StringVar(&opts.genesisFile, "genesis", "", "genesis manifest JSON, required only for a brand-new data directory")
	serve.Flags().StringVar(&opts.nodeAddr, "address", "", "this validator's committee address (defaults to its public key's address)")

	root.AddCommand(serve)
	return root
}

func newLogger() *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if isatty.IsTerminal(os.Stderr.Fd()) {
		cfg := zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(zapcore.InfoLevel))
	return zap.New(core).Sugar()
}

func runServe(ctx context.Context, opts *serveOptions) error {
	log := newLogger()
	defer log.Sync()

	runID := uuid.New().String()
	log = log.With("run_id", runID)
	log.Infow("starting epochmgrd", "listen", opts.listenAddr, "metrics_addr", opts.metricsAddr)

	if err := os.MkdirAll(opts.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", opts.dataDir, err)
	}

	priv, err := loadOrGenerateIdentity(opts.keyFile)
	if err != nil {
		return err
	}
	self, err := validatorset.NewAuthor(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("deriving validator address: %w", err)
	}
	if opts.nodeAddr != "" {
		self = validatorset.Author(opts.nodeAddr)
	}
	log = log.With("self", self)

	boltStore, err := storage.OpenBoltStorage(opts.dataDir + "/recovery.db")
	if err != nil {
		return err
	}
	defer boltStore.Close()

	recovery, err := boltStore.Start()
	if errors.Is(err, storage.ErrNoRecoveryData) {
		if opts.genesisFile == "" {
			return fmt.Errorf("data directory %s is empty and no --genesis manifest was given", opts.dataDir)
		}
		recovery, err = loadGenesisManifest(opts.genesisFile)
		if err != nil {
			return err
		}
		if err := boltStore.Persist(recovery); err != nil {
			return fmt.Errorf("persisting genesis recovery data: %w", err)
		}
		log.Infow("bootstrapped from genesis manifest", "epoch", recovery.Epoch, "validators", len(recovery.Validators))
	} else if err != nil {
		return err
	}

	verifier := validatorset.NewVerifier(recovery.Validators)
	genesisLedger := genesisLedgerInfo(recovery)
	stateComputer := statecomputer.NewInMemory(genesisLedger)

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	wsSender := network.NewWSSender(log.Named("transport"))
	sender := network.NewNetworkSender(wsSender, verifier, log.Named("sender"))
	txPool := mempool.New(10000)

	timeouts := make(chan uint64, 64)
	mgr, err := epoch.NewManager(
		epoch.EpochInfo{Epoch: recovery.Epoch, Verifier: verifier},
		config.Default(),
		epoch.Deps{
			Self:          self,
			PrivKey:       priv,
			Sender:        sender,
			Timeouts:      timeouts,
			TxnManager:    txPool,
			TimeService:   wallClockTimeSource{},
			StateComputer: stateComputer,
			Storage:       boltStore,
			SafetyRules:   safetyrules.NewInMemoryManager(),
			Audit:         epoch.NewZapAuditSink(log.Named("security-audit")),
			Log:           log.Named("epoch"),
		},
	)
	if err != nil {
		return fmt.Errorf("constructing epoch manager: %w", err)
	}

	drv := &driver{manager: mgr, log: log.Named("driver")}
	peerSrv := &peerServer{sender: wsSender, eligibility: sender, driver: drv, log: log.Named("server")}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", peerSrv.handleUpgrade)
	mux.HandleFunc("/submit-tx", submitTxHandler(txPool, log.Named("mempool")))
	peerHTTP := &http.Server{Addr: opts.listenAddr, Handler: mux}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsHTTP := &http.Server{Addr: opts.metricsAddr, Handler: metricsMux}

	group, gctx := errgroup.WithContext(signalContext(ctx))
	group.Go(func() error {
		log.Infow("peer listener starting", "addr", opts.listenAddr)
		if err := peerHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("peer listener: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		log.Infow("metrics listener starting", "addr", opts.metricsAddr)
		if err := metricsHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		peerHTTP.Shutdown(shutdownCtx)
		metricsHTTP.Shutdown(shutdownCtx)
		wsSender.Close()
		return nil
	})

	return group.Wait()
}

// signalContext returns a context canceled on SIGINT/SIGTERM, layered on
// parent so an already-canceled parent (e.g. in tests) still propagates.
func signalContext(parent context.Context) context.Context {
	ctx, _ := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return ctx
}
