package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
	"github.com/shenikar/incident_correlation_system/internal/config"
	"github.com/shenikar/incident_correlation_system/internal/scorer"
	"golang.org/x/time/rate"
)

// OpenAIScorer реализует scorer.SemanticScorer через embedding API.
// Близость текстов - косинус между векторами, приведенный к [0,1].
type OpenAIScorer struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	cache   *gocache.Cache
	limiter *rate.Limiter
}

// NewOpenAIScorer создает scorer поверх OpenAI-совместимого endpoint
func NewOpenAIScorer(cfg *config.Config) (*OpenAIScorer, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the semantic scorer")
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}

	return &OpenAIScorer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.EmbeddingModel(cfg.EmbeddingModel),
		// Повторная оценка после конфликта коммита и ретраи планировщика
		// не должны заново оплачивать embedding одного и того же текста
		cache:   gocache.New(30*time.Minute, 10*time.Minute),
		limiter: rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1),
	}, nil
}

// Score возвращает семантическую близость двух текстов в [0,1]
func (s *OpenAIScorer) Score(ctx context.Context, a, b string) (float64, error) {
	va, err := s.embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := s.embed(ctx, b)
	if err != nil {
		return 0, err
	}
	// Косинус лежит в [-1,1], приводим к [0,1]
	return (cosine(va, vb) + 1) / 2, nil
}

func (s *OpenAIScorer) embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if cached, found := s.cache.Get(key); found {
		return cached.([]float32), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limiter: %w", err)
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scorer.ErrCollaboratorUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: embedding API returned no data", scorer.ErrCollaboratorUnavailable)
	}

	embedding := resp.Data[0].Embedding
	s.cache.Set(key, embedding, gocache.DefaultExpiration)
	return embedding, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
