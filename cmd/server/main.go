package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socket-gateway/internal/backend"
	"socket-gateway/internal/cache"
	"socket-gateway/internal/config"
	"socket-gateway/internal/gateway"
	"socket-gateway/internal/server"
	"socket-gateway/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logg := logger.New(cfg.Log.Level)
	logg.Info("starting socket gateway", "name", cfg.App.Name)

	// Redis is a declared dependency with no live call path yet; a missing
	// instance must not keep the gateway down.
	store := cache.New(&cfg.Redis, logg)
	defer store.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	if err := store.Ping(pingCtx); err != nil {
		logg.Warn("redis unavailable", "error", err)
	}
	pingCancel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Route table bootstrap and refresh loop.
	proxy := backend.NewProxy(logg, &cfg.App)
	go proxy.Run(ctx)

	gw := gateway.New(logg, proxy, cfg.Auth.Key, cfg.Auth.Secret)
	srv := server.New(&cfg.App, logg, gw)

	go func() {
		if err := srv.Run(); err != nil {
			logg.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Debug("termination signal received")

	// Drain: refuse new work, leave open sockets a fixed grace window, then
	// close the listener and exit clean.
	gw.BlockNewRequests()
	time.Sleep(cfg.App.DrainGrace)

	cancel()
	gw.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server shutdown failed", "error", err)
	}

	logg.Info("gateway stopped")
}
