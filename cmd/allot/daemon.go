package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fentz26/allot/internal/allocator"
	"github.com/fentz26/allot/internal/audit"
	"github.com/fentz26/allot/internal/controlplane"
	"github.com/fentz26/allot/internal/store"
	"github.com/fentz26/allot/internal/tracing"
)

var (
	listenAddr string
	dbPath     string
	noHistory  bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the allot daemon",
	Long:  `Starts the allot daemon which serves the allocation HTTP API and records run history.`,
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (default from config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")
	daemonCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record runs")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	logger.Info("starting allot daemon", zap.String("version", version))

	if cfg.Tracing.Enabled {
		if err := tracing.Init("allot", version, cfg.Tracing.File); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx); err != nil {
				logger.Warn("tracing shutdown", zap.Error(err))
			}
		}()
	}

	// Initialize store
	var s *store.Store
	var pdr *audit.PDRWriter
	if !noHistory {
		var err error
		s, err = store.New(cfg.DBPath)
		if err != nil {
			return err
		}
		pdr = audit.NewPDRWriter(s)
		logger.Info("run history enabled", zap.String("db", cfg.DBPath))
	}

	// Create service and server
	engine := allocator.NewEngine(&cfg.Engine, logger.Named("engine"))
	service := controlplane.NewService(engine, s, pdr, logger.Named("service"))
	server := controlplane.NewServer(service, s, cfg.Listen, controlplane.Options{
		RequestTimeout:  cfg.Server.RequestTimeout,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
		Batch:           &cfg.Batch,
		Version:         version,
		Logger:          logger.Named("http"),
	})

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			if s != nil {
				s.Close()
			}
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	if s != nil {
		logger.Info("closing database connection")
		if err := s.Close(); err != nil {
			logger.Warn("database close error", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}
