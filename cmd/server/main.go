package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/Tyrowin/roomrelay/internal/roomstore"
	"github.com/Tyrowin/roomrelay/internal/server"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Room relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Error closing room store", "error", err)
		}
	}()

	relay := server.New(cfg, store, logger)
	relay.Start()

	httpServer := server.CreateServer(cfg.Port, relay.Routes())
	serveErr := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			_ = relay.Shutdown(cfg.ShutdownTimeout)
			return exitRuntime, fmt.Errorf("http server: %w", err)
		}
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, logger); err != nil {
		logger.Error("HTTP shutdown incomplete", "error", err)
	}
	if err := relay.Shutdown(cfg.ShutdownTimeout); err != nil {
		logger.Warn("Hub shutdown incomplete", "error", err)
	}
	return exitOK, nil
}

func openStore(ctx context.Context, cfg server.StoreConfig, logger *slog.Logger) (roomstore.Store, error) {
	switch cfg.Backend {
	case server.StorePostgres:
		logger.Info("Using postgres room store")
		return roomstore.OpenPostgres(ctx, cfg.PGURL, cfg.PGMaxConn, logger)
	case server.StoreMemory:
		logger.Info("Using in-memory room store")
		return roomstore.OpenBadger("", logger)
	default:
		logger.Info("Using badger room store", "path", cfg.BadgerPath)
		return roomstore.OpenBadger(cfg.BadgerPath, logger)
	}
}
