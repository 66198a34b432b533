package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/lshigami/Tamarin/internal/model"
	"github.com/lshigami/Tamarin/internal/repository"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// DefaultCollectionName is used when a requested collection name sanitizes
// down to nothing.
const DefaultCollectionName = "default_collection"

// SearchResult is one ranked match from a similarity query.
type SearchResult struct {
	ChunkID  string
	Content  string
	Metadata map[string]string
	Distance float64
}

// VectorIndexService owns the embed-and-store side of ingestion and the
// similarity search used for retrieval.
type VectorIndexService interface {
	// StoreDocument embeds the texts and upserts them into the named
	// collection. It returns the collection name actually used, which may
	// differ from the requested one when the name needed sanitizing.
	StoreDocument(ctx context.Context, collection string, texts []string, metadatas []map[string]interface{}, ids []string) (string, error)
	Search(ctx context.Context, collection string, query string, k int, filter map[string]string) ([]SearchResult, error)
	DeleteCollection(collection string) error
	Configured() bool
}

type vectorIndexService struct {
	chunkRepo repository.ChunkRepository
	embedder  EmbeddingService
}

func NewVectorIndexService(chunkRepo repository.ChunkRepository, embedder EmbeddingService) VectorIndexService {
	return &vectorIndexService{chunkRepo: chunkRepo, embedder: embedder}
}

func (s *vectorIndexService) Configured() bool {
	return s.embedder.Configured()
}

func (s *vectorIndexService) StoreDocument(ctx context.Context, collection string, texts []string, metadatas []map[string]interface{}, ids []string) (string, error) {
	cleanTexts, cleanMetas, cleanIDs, err := normalizeStoreInput(texts, metadatas, ids)
	if err != nil {
		return "", err
	}

	name, err := s.ensureCollection(collection)
	if err != nil {
		return "", err
	}

	vectors, err := s.embedder.EmbedTexts(ctx, cleanTexts)
	if err != nil {
		return "", fmt.Errorf("failed to embed document chunks: %w", err)
	}

	chunks := make([]model.DocumentChunk, len(cleanTexts))
	for i := range cleanTexts {
		chunks[i] = model.DocumentChunk{
			ChunkID:    cleanIDs[i],
			Collection: name,
			Content:    cleanTexts[i],
			Metadata:   cleanMetas[i],
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}
	if err := s.chunkRepo.UpsertChunks(chunks); err != nil {
		return "", fmt.Errorf("failed to store %d chunks in collection %s: %w", len(chunks), name, err)
	}
	return name, nil
}

func (s *vectorIndexService) Search(ctx context.Context, collection string, query string, k int, filter map[string]string) ([]SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed search query: %w", err)
	}

	rows, err := s.chunkRepo.SearchByEmbedding(collection, pgvector.NewVector(vector), k, filter)
	if err != nil {
		return nil, fmt.Errorf("similarity search in collection %s failed: %w", collection, err)
	}

	results := make([]SearchResult, len(rows))
	for i, row := range rows {
		results[i] = SearchResult{
			ChunkID:  row.ChunkID,
			Content:  row.Content,
			Metadata: row.Metadata,
			Distance: row.Distance,
		}
	}
	return results, nil
}

// DeleteCollection removes the collection and its chunks. Deleting a
// collection that never existed is not an error.
func (s *vectorIndexService) DeleteCollection(collection string) error {
	return s.chunkRepo.DeleteCollection(collection)
}

// ensureCollection registers the collection name, retrying once with a
// sanitized alphanumeric name when the raw one is rejected.
func (s *vectorIndexService) ensureCollection(name string) (string, error) {
	err := s.chunkRepo.EnsureCollection(name)
	if err == nil {
		return name, nil
	}
	sanitized := sanitizeCollectionName(name)
	log.Warn().Err(err).Str("collection", name).Str("sanitized", sanitized).
		Msg("collection creation failed, retrying with sanitized name")
	if retryErr := s.chunkRepo.EnsureCollection(sanitized); retryErr != nil {
		return "", fmt.Errorf("failed to create collection %s: %w", sanitized, retryErr)
	}
	return sanitized, nil
}

// normalizeStoreInput aligns texts, metadatas and ids to the same length,
// synthesizes missing ids and metadata, coerces metadata values to strings
// and drops empty texts. Removing every text is a failure; storing nothing
// silently would leave the caller believing the document was indexed.
func normalizeStoreInput(texts []string, metadatas []map[string]interface{}, ids []string) ([]string, []map[string]string, []string, error) {
	n := len(texts)

	alignedIDs := make([]string, n)
	for i := 0; i < n; i++ {
		if i < len(ids) && ids[i] != "" {
			alignedIDs[i] = ids[i]
		} else {
			alignedIDs[i] = uuid.NewString()
		}
	}

	alignedMetas := make([]map[string]string, n)
	for i := 0; i < n; i++ {
		alignedMetas[i] = map[string]string{}
		if i < len(metadatas) {
			for key, value := range metadatas[i] {
				alignedMetas[i][key] = fmt.Sprint(value)
			}
		}
	}

	var outTexts []string
	var outMetas []map[string]string
	var outIDs []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		outTexts = append(outTexts, text)
		outMetas = append(outMetas, alignedMetas[i])
		outIDs = append(outIDs, alignedIDs[i])
	}
	if len(outTexts) == 0 {
		return nil, nil, nil, fmt.Errorf("no non-empty texts to index")
	}
	return outTexts, outMetas, outIDs, nil
}

// sanitizeCollectionName keeps letters and digits only.
func sanitizeCollectionName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return DefaultCollectionName
	}
	return b.String()
}
