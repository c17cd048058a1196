package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"parkml/config"
	"parkml/db"
	phttp "parkml/http"
	"parkml/logging"
	"parkml/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	defer logger.Sync()

	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.Database.Path), zap.Error(err))
	}
	defer store.Close()
	logger.Info("database ready", zap.String("path", cfg.Database.Path))

	hub := monitoring.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	svc := phttp.NewPredictionService(phttp.ServiceConfig{
		CacheEnabled: cfg.Cache.Enabled,
		CacheSize:    cfg.Cache.Size,
		CacheTTL:     time.Duration(cfg.Cache.TTLSec) * time.Second,
	}, logger, store, hub)

	// A missing artifact is not fatal: the service starts and answers
	// predictions with a model-unavailable status until training writes
	// the file and the watcher picks it up.
	if err := svc.LoadPricing(cfg.Models.Pricing.Path); err != nil {
		monitoring.ModelLoaded.WithLabelValues("pricing").Set(0)
		logger.Error("pricing model not loaded", zap.String("path", cfg.Models.Pricing.Path), zap.Error(err))
	}
	if err := svc.LoadAvailability(cfg.Models.Availability.Path); err != nil {
		monitoring.ModelLoaded.WithLabelValues("availability").Set(0)
		logger.Error("availability model not loaded", zap.String("path", cfg.Models.Availability.Path), zap.Error(err))
	}

	if cfg.Models.WatchReload {
		watcher, err := phttp.NewArtifactWatcher(svc, cfg.Models.Pricing.Path, cfg.Models.Availability.Path, logger)
		if err != nil {
			logger.Error("artifact watcher disabled", zap.Error(err))
		} else {
			go watcher.Run()
			defer watcher.Close()
		}
	}

	handlers := phttp.NewHandlers(svc, hub, logger)
	server := phttp.NewServer(phttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        time.Duration(cfg.Http.TimeoutSec) * time.Second,
		AllowedOrigins: allowedOrigins(cfg),
	}, handlers, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.Http.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.Http.AllowedOrigins
}
