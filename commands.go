package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"discuss_go/internal/causal"
	"discuss_go/internal/config"
	"discuss_go/internal/discussion"
	"discuss_go/internal/metrics"
	"discuss_go/internal/treestate"
	"discuss_go/pkg/storage"
)

var (
	migrateOnStart bool

	rootCmd = &cobra.Command{
		Use:          "discuss",
		Short:        "Causal reply tree service",
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, causal engine dispatcher and backlog sweeper",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes",
		RunE:  runMigrate,
	}

	replayCmd = &cobra.Command{
		Use:   "replay",
		Short: "Resubmit vote events that have no score yet and exit",
		RunE:  runReplay,
	}
)

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply schema before serving")
	rootCmd.AddCommand(serveCmd, migrateCmd, replayCmd)
}

// app — собранные зависимости процесса.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	db         *storage.DB
	registry   *prometheus.Registry
	dispatcher *causal.Dispatcher
	service    *discussion.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := storage.Open(ctx, storage.Dialect(cfg.DBDriver), cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCausal(registry)

	engine := causal.NewProcessEngine(cfg.Causal.Command, cfg.Causal.Timeout)
	if len(cfg.Causal.Command) == 0 {
		log.Warn("[CAUSAL WARN] CAUSAL_ENGINE_CMD is empty, vote events stay pending")
	}
	consumer := causal.NewConsumer(db, m, log)
	dispatcher := causal.NewDispatcher(db, engine, consumer, m, log, causal.Options{
		QueueSize:       cfg.Causal.QueueSize,
		RetryMaxElapsed: cfg.Causal.RetryMaxElapsed,
	})
	service := discussion.NewService(db, treestate.NewEngine(treestate.Policy{DeadBand: cfg.InformedDeadBand}), dispatcher, log)

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		registry:   registry,
		dispatcher: dispatcher,
		service:    service,
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.db.Close()

	if migrateOnStart {
		if err := a.db.Migrate(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           setupRouter(a.service, a.registry, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.dispatcher.Run(gctx) })
	g.Go(func() error { return a.dispatcher.RunSweeper(gctx, a.cfg.Causal.SweepInterval) })
	g.Go(func() error {
		a.log.Info("[SERVER] Starting server", "port", a.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		a.log.Info("[SERVER] Stopped")
		return nil
	}
	return err
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.db.Close()

	if err := a.db.Migrate(cmd.Context()); err != nil {
		return err
	}
	a.log.Info("[DB] Schema applied", "driver", a.cfg.DBDriver)
	return nil
}

func runReplay(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.db.Close()

	n, err := a.dispatcher.Sweep(cmd.Context())
	if err != nil {
		return err
	}
	a.log.Info("[CAUSAL] Replay finished", "delivered", n)
	return nil
}
