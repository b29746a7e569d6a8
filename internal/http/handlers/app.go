package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"visage/internal/domain"
	"visage/internal/funnel"
	"visage/internal/infra"
	"visage/internal/queue"
	"visage/internal/storage"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App carries the wired dependencies every handler needs.
type App struct {
	Records     domain.AnalysisRepository
	Ledger      domain.CreditLedger
	Users       domain.UserRepository
	Prompts     domain.PromptRepository
	Queue       *queue.Queue
	Broadcaster *funnel.Broadcaster
	Store       *storage.FileStore
	DB          Pinger

	CostSolo   int
	CostPaired int

	Logger infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}
