package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chartflow/cache"
	"chartflow/chart"
	"chartflow/config"
	"chartflow/logger"
	"chartflow/server"
	"chartflow/store"
	"chartflow/upstream"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Chartflow.Name,
		"version": cfg.Chartflow.Version,
	}).Info("starting chartflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleShutdown(cancel)

	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
	}
	logger.StartReport(ctx, log, cfg.Metrics.ReportInterval)

	kv, err := cache.NewRedisKV(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL)
	if err != nil {
		log.WithError(err).Error("failed to connect to redis")
		os.Exit(1)
	}
	defer kv.Close()

	fileStore := store.NewFileStore(cfg.Store.DataRoot)
	barCache := cache.NewBarCache(kv, fileStore)

	provider := upstream.NewBinanceProvider(cfg)
	bans := upstream.NewBanGate(kv, cfg.Upstream.BanKey, cfg.Upstream.BanMemoTTL)

	svc := chart.NewService(barCache, provider, bans, cfg.Upstream.Retry.MaxAttempts, cfg.Upstream.Retry.BaseDelay)

	srv := server.NewServer(cfg.Server.Addr, cfg.Server.ShutdownTimeout, svc, kv)
	if err := srv.Start(ctx); err != nil {
		log.WithError(err).Error("http server failed")
		os.Exit(1)
	}

	log.Info("chartflow stopped")
}

func handleShutdown(cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	cancel()
}
