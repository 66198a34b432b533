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

// LLMService is the single text-completion entry point used by question
// generation and answer evaluation.
type LLMService interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

type geminiLLMService struct {
	client *genai.GenerativeModel
	cfg    *config.Config
}

// NewGeminiLLMService builds the Gemini-backed completion service. With no
// API key the service still constructs and every call reports
// ErrServiceUnconfigured, so callers can fall back to local strategies.
func NewGeminiLLMService(cfg *config.Config) (LLMService, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, LLM completions are disabled")
		return &geminiLLMService{cfg: cfg}, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Generation.Model)
	model.SetTemperature(cfg.Generation.Temperature)
	model.SetMaxOutputTokens(cfg.Generation.MaxTokens)

	return &geminiLLMService{client: model, cfg: cfg}, nil
}

func (s *geminiLLMService) Configured() bool {
	return s.client != nil
}

func (s *geminiLLMService) Complete(ctx context.Context, prompt string) (string, error) {
	if s.client == nil {
		return "", apperr.ErrServiceUnconfigured
	}

	resp, err := s.client.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		log.Error().Err(err).Msg("Gemini API error during completion")
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Warn().Msg("Gemini returned no candidates or parts in response")
		return "", fmt.Errorf("gemini returned no content: %w", apperr.ErrResponseMalformed)
	}

	text := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text += string(txt)
		}
	}
	if text == "" {
		return "", fmt.Errorf("gemini returned no text content: %w", apperr.ErrResponseMalformed)
	}
	return text, nil
}
