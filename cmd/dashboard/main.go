package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bi0dread/orderlens"
)

func main() {
	configFile := flag.String("config", "", "configuration file")
	flag.Parse()

	cfg, err := orderlens.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	level, _ := cfg.Level()
	loc, _ := cfg.Location()
	logger := orderlens.NewLogger(level)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	backend, err := orderlens.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open backend: %v", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("closing backend", "error", err)
		}
	}()
	backend.StartSweeper(ctx, time.Duration(cfg.SweepInterval), logger)

	service := orderlens.NewService(
		backend.Store,
		orderlens.NewResultCache(backend.Cache),
		orderlens.WithLogger(logger),
		orderlens.WithLocation(loc),
		orderlens.WithStrictAnalytics(cfg.StrictAnalytics),
	)

	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      NewRouter(service),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "driver", cfg.Driver, "cache", cfg.CacheBackend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server stopped")
}
