// Package main is the entry point for the VolGuard options trading decision
// server. It wires the market data providers, the decision engine, the
// persistent stores and the HTTP API, then runs until signalled.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voltlab/volguard/internal/config"
	"github.com/voltlab/volguard/internal/di"
	"github.com/voltlab/volguard/internal/scheduler"
	"github.com/voltlab/volguard/internal/server"
	"github.com/voltlab/volguard/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("provider", cfg.Provider).
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting VolGuard")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Tool-server connection failures are logged per server, never fatal;
	// the provider chain just runs without that fallback.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	container.ToolServers.Startup(startupCtx)
	cancelStartup()

	sched := scheduler.New(log)
	if err := scheduler.Register(context.Background(), sched, container, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register scheduled jobs")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("VolGuard stopped")
}
