package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"visage/internal/adapter/repo"
	"visage/internal/analysis"
	"visage/internal/bus"
	"visage/internal/compositor"
	"visage/internal/heartbeat"
	"visage/internal/infra"
	"visage/internal/infra/credentials"
	"visage/internal/notify"
	"visage/internal/orchestrator"
	"visage/internal/queue"
	"visage/internal/storage"
	"visage/internal/telegram"
)

const jobPollInterval = 2 * time.Second

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
	credStore := credentials.NewStore(runner)

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	botToken := strings.TrimSpace(cfg.TelegramBotToken)
	if botToken == "" {
		botToken, err = credStore.TelegramBotToken(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load telegram token from store")
		}
	}
	if botToken == "" {
		logger.Fatal().Msg("worker: telegram bot token is required")
	}
	tgClient, err := telegram.NewClient(botToken, cfg.TelegramAPIBase, fileStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure telegram client")
	}

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiAPIKey == "" {
		geminiAPIKey, err = credStore.GeminiAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
		}
	}
	if geminiAPIKey == "" {
		logger.Fatal().Msg("worker: gemini api key is required")
	}

	prompts := analysis.NewPromptStore(repo.NewPromptRepository(runner), cfg.PromptCacheTTL)
	gateway, err := analysis.NewGateway(analysis.Options{
		APIKey:       geminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		Model:        cfg.GeminiModel,
		SummaryModel: cfg.GeminiSummaryModel,
		HTTPClient:   &http.Client{Timeout: 120 * time.Second},
		Logger:       &logger,
		Prompts:      prompts,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure analysis gateway")
	}

	orch := orchestrator.New(
		repo.NewAnalysisRepository(runner),
		repo.NewLedger(runner),
		bus.New(runner, logger),
		tgClient,
		gateway,
		compositor.New(cfg.TemplatesPath, logger),
		func(chatRef int64) orchestrator.Beater {
			return heartbeat.New(tgClient, logger, chatRef)
		},
		logger,
	)
	jobs := queue.New(runner, cfg.QueueMaxAttempts)
	dispatcher := notify.NewDispatcher(tgClient, logger)
	subscriber := bus.NewSubscriber(pool, logger)

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker: started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return subscriber.Run(gctx, dispatcher.Handle)
	})
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		g.Go(func() error {
			return runLoop(gctx, jobs, orch, logger)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func runLoop(ctx context.Context, jobs *queue.Queue, orch *orchestrator.Orchestrator, logger infra.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		j, err := jobs.Claim(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrNoJobAvailable) {
				logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jobPollInterval):
			}
			continue
		}

		handle(ctx, jobs, orch, logger, j)
	}
}

func handle(ctx context.Context, jobs *queue.Queue, orch *orchestrator.Orchestrator, logger infra.Logger, j *queue.Job) {
	logger.Info().
		Str("job_id", j.ID).
		Int("attempt", j.Attempts).
		Msg("worker: picked job")

	if err := orch.Process(ctx, j.Payload.Request()); err != nil {
		logger.Error().Err(err).Str("job_id", j.ID).Msg("worker: job failed, releasing for retry")
		if err := jobs.Release(ctx, j); err != nil {
			logger.Error().Err(err).Str("job_id", j.ID).Msg("worker: release failed")
		}
		return
	}
	if err := jobs.Complete(ctx, j.ID); err != nil {
		logger.Error().Err(err).Str("job_id", j.ID).Msg("worker: complete failed")
	}
}
