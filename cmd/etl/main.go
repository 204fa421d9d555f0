package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketpipe/internal/application"
	"marketpipe/internal/bootstrap"
	"marketpipe/internal/config"
	"marketpipe/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	log := logx.L()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := bootstrap.BuildStores(ctx, cfg)
	if err != nil {
		log.Fatal("bootstrap stores", zap.Error(err))
	}
	defer cleanup()

	cache, closeCache := bootstrap.BuildExtractCache(cfg)
	defer closeCache()

	prov := bootstrap.BuildProvider(cfg)
	snapshot := bootstrap.BuildSnapshotPipeline(cfg, stores, prov, cache)
	ohlc := bootstrap.BuildOHLCPipeline(cfg, stores, prov, cache)

	if cfg.RunInterval <= 0 {
		if err := runOnce(ctx, log, cfg.Pipelines, snapshot, ohlc); err != nil {
			log.Error("run failed", zap.Error(err))
			cleanup()
			closeCache()
			os.Exit(1)
		}
		return
	}

	log.Info("scheduler started", zap.Duration("interval", cfg.RunInterval))
	t := time.NewTicker(cfg.RunInterval)
	defer t.Stop()
	for {
		if err := runOnce(ctx, log, cfg.Pipelines, snapshot, ohlc); err != nil {
			log.Error("run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-t.C:
		}
	}
}

func runOnce(ctx context.Context, log *zap.Logger, pipelines string, snapshot *application.SnapshotPipeline, ohlc *application.OHLCPipeline) error {
	start := time.Now()
	if pipelines == "both" || pipelines == "snapshot" {
		rows, err := snapshot.Run(ctx)
		if err != nil {
			return err
		}
		log.Info("snapshot pipeline succeeded", zap.Int("rows", rows))
	}
	if pipelines == "both" || pipelines == "ohlc" {
		rows, err := ohlc.Run(ctx)
		if err != nil {
			return err
		}
		log.Info("ohlc pipeline succeeded", zap.Int("rows", rows))
	}
	log.Info("run complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}
