package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"nftmarket/pkg/config"
	"nftmarket/pkg/rpc"
	"nftmarket/pkg/server"
	"nftmarket/pkg/store"
	"nftmarket/pkg/tui"
	"nftmarket/pkg/watcher"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version should be set during build
var Version = "dev"

// defaultLogFile is used in TUI mode when the config names none, so log
// lines never land on the alt screen.
var defaultLogFile = filepath.Join(os.TempDir(), "nftmarket.log")

func main() {
	testFlag := flag.Bool("t", false, "Test configuration and exit")
	testLongFlag := flag.Bool("test", false, "Test configuration and exit")
	jsonFlag := flag.Bool("json", false, "Output test results as JSON")
	configFlag := flag.String("config", "", "Path to configuration file")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	serverFlag := flag.Bool("server", false, "Run in headless server mode")
	portFlag := flag.Int("port", 0, "Port for API server (overrides config)")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("nftmarket version %s\n", Version)
		os.Exit(0)
	}

	cfgInput := *configFlag
	if cfgInput == "" && len(flag.Args()) > 0 {
		cfgInput = flag.Args()[0]
	}
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		fmt.Printf("Error determining config path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		fmt.Printf("Error loading config from %s: %v\n", path, err)
		os.Exit(1)
	}
	if *portFlag > 0 {
		cfg.ServerPort = *portFlag
	}

	if *testFlag || *testLongFlag {
		var out io.Writer = os.Stdout
		if *jsonFlag {
			out = nil
		}
		report := runSelfTest(cfg, path, out)
		if *jsonFlag {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(report)
		}
		if !selfTestPassed(report) {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Printf("Invalid configuration at %s:\n", path)
		for _, e := range errs {
			fmt.Printf(" - %s\n", e)
		}
		os.Exit(1)
	}

	logFile := cfg.LogFile
	if logFile == "" && !*serverFlag {
		logFile = defaultLogFile
	}
	logger, err := newLogger(*debugFlag, logFile)
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger, *serverFlag); err != nil {
		logger.Error("exiting", zap.Error(err))
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger, headless bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	market, err := rpc.NewMarketClient(cfg.RPCURL, cfg.MarketAddress)
	if err != nil {
		return fmt.Errorf("connecting to market: %w", err)
	}
	defer market.Close()

	wallet := rpc.NewWalletClient(cfg.WalletRPCURL)
	defer wallet.Close()

	st := store.New(wallet, market, store.WithLogger(logger.Named("store")))

	checkCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	connected := st.CheckConnection(checkCtx)
	cancel()
	logger.Info("wallet check finished", zap.Bool("connected", connected))

	w := watcher.NewWatcher(st, watcher.NewRealMetadataSource(market.Eth()), cfg, logger.Named("watcher"))
	w.Start(ctx)
	defer w.Stop()

	srv := server.NewServer(st, cfg, logger.Named("server"))

	if headless {
		logger.Info("running in server mode", zap.Int("port", cfg.ServerPort))
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(cfg.ServerPort) }()
		select {
		case err := <-errCh:
			return fmt.Errorf("api server: %w", err)
		case <-ctx.Done():
			return nil
		}
	}

	go func() {
		if err := srv.Start(cfg.ServerPort); err != nil {
			logger.Warn("api server stopped", zap.Error(err))
		}
	}()

	return tui.Start(st, w, cfg, Version)
}

// newLogger builds a production logger, or a development one when debug
// is set. A non-empty logFile replaces stderr as the sink.
func newLogger(debug bool, logFile string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if logFile != "" {
		zcfg.OutputPaths = []string{logFile}
		zcfg.ErrorOutputPaths = []string{logFile}
	}
	return zcfg.Build()
}
