package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra/credentials"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/pipeline"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/providers"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/storage"
)

const scenePollInterval = 15 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	records := storage.NewPGRecordStore(runner)
	credStore := credentials.NewStore(runner)
	fillToken(ctx, &cfg.VideoAPIKey, credentials.ProviderVideo, credStore, logger)

	blobs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	adapters, err := providers.NewAdapters(cfg, &logger, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure providers")
	}
	invoker := gen.NewInvoker(adapters, logger)

	worker := pipeline.NewSceneWorker(invoker, blobs, records, logger, cfg.GenTimeout, cfg.GenMaxRetries, cfg.BatchWorkers)

	logger.Info().Dur("interval", scenePollInterval).Msg("scene worker started")
	worker.Run(ctx, scenePollInterval)
	logger.Info().Msg("scene worker stopped")
}

func fillToken(ctx context.Context, dst *string, provider string, store *credentials.Store, logger infra.Logger) {
	if *dst != "" {
		return
	}
	token, err := store.Token(ctx, provider)
	if err != nil {
		logger.Warn().Err(err).Str("provider", provider).Msg("worker: failed to load stored token")
		return
	}
	*dst = token
}
