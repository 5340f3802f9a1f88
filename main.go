package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecbarko/ecbarko-db/config"
	"github.com/ecbarko/ecbarko-db/handlers"
	"github.com/ecbarko/ecbarko-db/logging"
	"github.com/ecbarko/ecbarko-db/metrics"
	"github.com/ecbarko/ecbarko-db/router"
	"github.com/ecbarko/ecbarko-db/store"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load Env file
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer logger.Sync()
	logging.SetGlobal(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewPrometheusCollector("ecbarko")
	if err := collector.Register(registry); err != nil {
		logger.Fatal("register metrics", zap.Error(err))
	}

	accounts, err := openStore(cfg)
	if err != nil {
		logger.Fatal("open account store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	logger.Info("account store ready", zap.String("driver", cfg.StoreDriver))

	h := handlers.NewAccountHandler(accounts, cfg.MaxLoadAmount, collector, logger)
	r := router.Router(h, router.Options{
		AllowedOrigin:  cfg.CORSAllowedOrigin,
		Logger:         logger,
		Metrics:        collector,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := accounts.Close(ctx); err != nil {
		logger.Error("close account store", zap.Error(err))
	}

	logger.Info("server gracefully stopped")
}

func openStore(cfg config.Config) (store.AccountStore, error) {
	if cfg.StoreDriver == config.StoreMemory {
		return store.NewMemoryStore(), nil
	}

	client, collection, err := config.ConnectToMongo(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return store.NewMongoStore(collection, client), nil
}
