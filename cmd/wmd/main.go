package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"wrappedm/config"
	"wrappedm/native/wrapped"
	"wrappedm/observability"
	"wrappedm/observability/logging"
	telemetry "wrappedm/observability/otel"
	"wrappedm/services/wmd"
	statewrapped "wrappedm/state/wrapped"
	"wrappedm/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.toml", "path to wmd config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("validate config: %v", err)
	}

	logger := logging.Setup("wmd", cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "wmd",
			Environment: cfg.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Metrics:     cfg.Telemetry.Metrics,
			Traces:      cfg.Telemetry.Traces,
		})
		if err != nil {
			log.Fatalf("init telemetry: %v", err)
		}
		defer func() {
			_ = shutdownTelemetry(context.Background())
		}()
	}

	wrapper, err := cfg.WrapperAddress()
	if err != nil {
		log.Fatalf("wrapper address: %v", err)
	}
	excess, err := cfg.ExcessDestinationAddress()
	if err != nil {
		log.Fatalf("excess destination: %v", err)
	}
	admin, err := cfg.MigrationAdminAddress()
	if err != nil {
		log.Fatalf("migration admin: %v", err)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	store, err := statewrapped.NewStore(db)
	if err != nil {
		log.Fatalf("build store: %v", err)
	}
	baseLedger, err := statewrapped.NewBaseLedger(db)
	if err != nil {
		log.Fatalf("build base ledger: %v", err)
	}
	registry, err := statewrapped.NewRegistry(db, logger)
	if err != nil {
		log.Fatalf("build registry: %v", err)
	}

	// The wrapper's custody account earns on the base ledger so its backing
	// keeps pace with the obligations it guarantees.
	if err := baseLedger.SetEarning(wrapper, true); err != nil {
		log.Fatalf("configure custody account: %v", err)
	}

	engine, err := wrapped.NewEngine(wrapper, excess, admin, baseLedger.Account(wrapper), registry, registry)
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}
	engine.SetState(store)
	engine.SetEmitter(observability.NewRecorder(logger))

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           wmd.NewServer(engine, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("query service listening", "address", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("serve: %v", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
