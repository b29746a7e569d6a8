package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"visage/internal/adapter/repo"
	"visage/internal/bus"
	"visage/internal/funnel"
	"visage/internal/http/handlers"
	httpapi "visage/internal/http/httpapi"
	"visage/internal/infra"
	"visage/internal/queue"
	"visage/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	users := repo.NewUserRepository(runner)
	publisher := bus.New(runner, logger)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	app := &handlers.App{
		Records: repo.NewAnalysisRepository(runner),
		Ledger:  repo.NewLedger(runner),
		Users:   users,
		Prompts: repo.NewPromptRepository(runner),
		Queue:   queue.New(runner, cfg.QueueMaxAttempts),
		Broadcaster: funnel.NewBroadcaster(
			users,
			publisher,
			float64(cfg.FunnelRatePerSec),
			cfg.FunnelConcurrency,
			logger,
		),
		Store:      fileStore,
		DB:         dbpool,
		CostSolo:   cfg.AnalysisCostSolo,
		CostPaired: cfg.AnalysisCostPaired,
		Logger:     logger,
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
