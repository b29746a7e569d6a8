package analysis

import (
	"context"
	"testing"
	"time"

	"visage/internal/domain"
)

type fakeLookup struct {
	bodies map[string]string
	calls  int
}

func (f *fakeLookup) GetByKey(ctx context.Context, key string) (string, error) {
	f.calls++
	if body, ok := f.bodies[key]; ok {
		return body, nil
	}
	return "", domain.ErrNotFound
}

func TestPromptStoreCachesLookups(t *testing.T) {
	lookup := &fakeLookup{bodies: map[string]string{PromptKeySolo: "custom solo prompt"}}
	store := NewPromptStore(lookup, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := store.AnalysisPrompt(context.Background(), domain.VariantSolo)
		if err != nil {
			t.Fatalf("AnalysisPrompt: %v", err)
		}
		if got != "custom solo prompt" {
			t.Fatalf("unexpected prompt: %q", got)
		}
	}
	if lookup.calls != 1 {
		t.Fatalf("expected a single backing lookup, got %d", lookup.calls)
	}
}

func TestPromptStoreVariantKeys(t *testing.T) {
	lookup := &fakeLookup{bodies: map[string]string{
		PromptKeySolo:   "solo",
		PromptKeyPaired: "paired",
	}}
	store := NewPromptStore(lookup, time.Minute)

	solo, _ := store.AnalysisPrompt(context.Background(), domain.VariantSolo)
	paired, _ := store.AnalysisPrompt(context.Background(), domain.VariantPaired)
	if solo != "solo" || paired != "paired" {
		t.Fatalf("variant keys mixed up: %q / %q", solo, paired)
	}
}

func TestPromptStoreExpiry(t *testing.T) {
	lookup := &fakeLookup{bodies: map[string]string{PromptKeySummary: "v1"}}
	store := NewPromptStore(lookup, 20*time.Millisecond)

	if _, err := store.SummaryPrompt(context.Background()); err != nil {
		t.Fatalf("SummaryPrompt: %v", err)
	}
	lookup.bodies[PromptKeySummary] = "v2"
	time.Sleep(40 * time.Millisecond)

	got, err := store.SummaryPrompt(context.Background())
	if err != nil {
		t.Fatalf("SummaryPrompt after expiry: %v", err)
	}
	if got != "v2" {
		t.Fatalf("expected refreshed prompt, got %q", got)
	}
}

func TestGatewayFallsBackToDefaultPrompts(t *testing.T) {
	g, err := NewGateway(Options{})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if got := g.analysisPrompt(context.Background(), domain.VariantSolo); got != defaultSoloPrompt {
		t.Fatalf("unexpected solo fallback")
	}
	if got := g.analysisPrompt(context.Background(), domain.VariantPaired); got != defaultPairedPrompt {
		t.Fatalf("unexpected paired fallback")
	}
	if got := g.summaryPrompt(context.Background()); got != defaultSummaryPrompt {
		t.Fatalf("unexpected summary fallback")
	}
}
