package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	StoragePath string

	TelegramBotToken string
	TelegramAPIBase  string

	GeminiAPIKey       string
	GeminiModel        string
	GeminiSummaryModel string
	GeminiBaseURL      string

	AnalysisCostSolo   int
	AnalysisCostPaired int

	WorkerConcurrency int
	QueueMaxAttempts  int

	FunnelConcurrency int
	FunnelRatePerSec  int

	PromptCacheTTL time.Duration

	TemplatesPath string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StoragePath: getEnv("STORAGE_PATH", "./storage"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAPIBase:  getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),

		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiSummaryModel: getEnv("GEMINI_SUMMARY_MODEL", "gemini-2.0-flash-lite"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		AnalysisCostSolo:   getEnvInt("ANALYSIS_COST_SOLO", 1),
		AnalysisCostPaired: getEnvInt("ANALYSIS_COST_PAIRED", 2),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		QueueMaxAttempts:  getEnvInt("QUEUE_MAX_ATTEMPTS", 3),

		FunnelConcurrency: getEnvInt("FUNNEL_CONCURRENCY", 8),
		FunnelRatePerSec:  getEnvInt("FUNNEL_RATE_PER_SEC", 25),

		PromptCacheTTL: time.Second * time.Duration(getEnvInt("PROMPT_CACHE_TTL_SECONDS", 300)),

		TemplatesPath: getEnv("TEMPLATES_PATH", "./assets/templates"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.AnalysisCostSolo <= 0 || cfg.AnalysisCostPaired <= 0 {
		return nil, fmt.Errorf("analysis costs must be positive")
	}

	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
