package analysis

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"visage/internal/domain"
)

// Prompt keys as stored in the prompts table.
const (
	PromptKeySolo    = "analysis.solo"
	PromptKeyPaired  = "analysis.paired"
	PromptKeySummary = "summary"
)

// Defaults used when the store has no override for a key.
const (
	defaultSoloPrompt = "Ты — внимательный физиогномист. Изучи фотографии человека и составь " +
		"подробный разбор характера по чертам лица: лоб, брови, глаза, нос, губы, подбородок. " +
		"Пиши тепло и уважительно, без категоричных выводов. " +
		"Если на фотографиях нет различимого лица, ответь одним словом: НЕТ."

	defaultPairedPrompt = "Ты — внимательный физиогномист. Перед тобой фотографии двух людей. " +
		"Составь разбор совместимости их характеров по чертам лиц: что их сближает, " +
		"в чём они дополняют друг друга, на что стоит обратить внимание. " +
		"Пиши тепло и уважительно. " +
		"Если на фотографиях нет различимых лиц, ответь одним словом: НЕТ."

	defaultSummaryPrompt = "Сократи следующий разбор до трёх ёмких предложений, " +
		"сохранив самые яркие наблюдения:"
)

// PromptLookup fetches a prompt body by key from durable storage.
type PromptLookup interface {
	GetByKey(ctx context.Context, key string) (string, error)
}

// PromptStore reads prompt texts through a TTL cache so editors can adjust
// them at runtime without a per-job database round trip. Expired entries are
// evicted by the cache itself rather than checked per read.
type PromptStore struct {
	lookup PromptLookup
	cache  *gocache.Cache
}

func NewPromptStore(lookup PromptLookup, ttl time.Duration) *PromptStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PromptStore{
		lookup: lookup,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

// AnalysisPrompt returns the prompt for the variant.
func (s *PromptStore) AnalysisPrompt(ctx context.Context, variant domain.AnalysisVariant) (string, error) {
	key := PromptKeySolo
	if variant == domain.VariantPaired {
		key = PromptKeyPaired
	}
	return s.get(ctx, key)
}

// SummaryPrompt returns the short-summary prompt.
func (s *PromptStore) SummaryPrompt(ctx context.Context) (string, error) {
	return s.get(ctx, PromptKeySummary)
}

func (s *PromptStore) get(ctx context.Context, key string) (string, error) {
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), nil
	}
	body, err := s.lookup.GetByKey(ctx, key)
	if err != nil {
		return "", err
	}
	s.cache.SetDefault(key, body)
	return body, nil
}
