package service

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/Tamarin/config"
	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// EmbeddingDimensions is the output size of the embedding model. The vector
// column type must match it.
const EmbeddingDimensions = 768

// EmbeddingService turns text into dense vectors for similarity search.
type EmbeddingService interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Configured() bool
}

type embeddingService struct {
	client *genai.Client
	model  string
}

// NewEmbeddingService builds the service. Without an API key it still
// constructs, but every embed call reports ErrServiceUnconfigured so that
// ingestion can degrade instead of crashing at startup.
func NewEmbeddingService(cfg *config.Config) (EmbeddingService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, embeddings are disabled")
		return &embeddingService{model: cfg.Embedding.Model}, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &embeddingService{client: client, model: cfg.Embedding.Model}, nil
}

func (s *embeddingService) Configured() bool {
	return s.client != nil
}

func (s *embeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if s.client == nil {
		return nil, apperr.ErrServiceUnconfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}

	em := s.client.EmbeddingModel(s.model)
	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts: %w", len(texts), err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(res.Embeddings))
	}

	vectors := make([][]float32, len(res.Embeddings))
	for i, embedding := range res.Embeddings {
		vectors[i] = embedding.Values
	}
	return vectors, nil
}

func (s *embeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.client == nil {
		return nil, apperr.ErrServiceUnconfigured
	}
	res, err := s.client.EmbeddingModel(s.model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return res.Embedding.Values, nil
}
