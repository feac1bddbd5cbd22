package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sean-park-funda/thegrim-cms-sub003/internal/gen"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/http/handlers"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/http/httpapi"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/infra/credentials"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/pipeline"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/providers"
	"github.com/sean-park-funda/thegrim-cms-sub003/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	records := storage.NewPGRecordStore(runner)
	credStore := credentials.NewStore(runner)
	resolveTokens(ctx, cfg, credStore, logger)

	blobs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	adapters, err := providers.NewAdapters(cfg, &logger, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure providers")
	}
	invoker := gen.NewInvoker(adapters, logger)

	providerNames := make([]string, 0, len(adapters))
	for p := range adapters {
		providerNames = append(providerNames, string(p))
	}

	app := &handlers.App{
		Storyboards: pipeline.NewStoryboardService(invoker, records, logger, cfg.GenTimeout, cfg.GenMaxRetries),
		Shorts:      pipeline.NewShortsService(invoker, blobs, records, logger, cfg.GenTimeout, cfg.GenMaxRetries),
		Cast:        pipeline.NewCastService(invoker, blobs, logger, gen.ProviderDashScopeImage, cfg.GenTimeout, cfg.GenMaxRetries, cfg.BatchWorkers),
		Records:     records,
		Blobs:       blobs,
		Credentials: credStore,
		Logger:      logger,
		Providers:   providerNames,
	}

	router := httpapi.NewRouter(app, logger, cfg, blobs.BasePath())
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// resolveTokens fills API keys missing from the environment with tokens
// stored in the database.
func resolveTokens(ctx context.Context, cfg *infra.Config, store *credentials.Store, logger infra.Logger) {
	fill := func(dst *string, provider string) {
		if *dst != "" {
			return
		}
		token, err := store.Token(ctx, provider)
		if err != nil {
			logger.Warn().Err(err).Str("provider", provider).Msg("failed to load stored token")
			return
		}
		*dst = token
	}
	fill(&cfg.GeminiAPIKey, credentials.ProviderGemini)
	fill(&cfg.DashScopeAPIKey, credentials.ProviderDashScope)
	fill(&cfg.VideoAPIKey, credentials.ProviderVideo)
}
