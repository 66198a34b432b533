package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/lshigami/Tamarin/internal/model"
	"github.com/lshigami/Tamarin/internal/repository"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChunkRepo struct {
	collections map[string]bool
	rejectNames map[string]bool
	upserted    []model.DocumentChunk
	searchRows  []repository.ChunkSearchRow
	deleted     []string
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{collections: map[string]bool{}, rejectNames: map[string]bool{}}
}

func (f *fakeChunkRepo) EnsureCollection(name string) error {
	if f.rejectNames[name] {
		return errors.New("invalid collection name")
	}
	f.collections[name] = true
	return nil
}

func (f *fakeChunkRepo) UpsertChunks(chunks []model.DocumentChunk) error {
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeChunkRepo) SearchByEmbedding(collection string, embedding pgvector.Vector, k int, filter map[string]string) ([]repository.ChunkSearchRow, error) {
	return f.searchRows, nil
}

func (f *fakeChunkRepo) DeleteCollection(name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeEmbedder struct {
	configured bool
	err        error
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, 0.5}, nil
}

func (f *fakeEmbedder) Configured() bool { return f.configured }

func TestNormalizeStoreInput(t *testing.T) {
	texts := []string{"first chunk", "  ", "third chunk"}
	metadatas := []map[string]interface{}{
		{"material_id": 7, "title": "Biology"},
	}
	ids := []string{"7_0"}

	outTexts, outMetas, outIDs, err := normalizeStoreInput(texts, metadatas, ids)
	require.NoError(t, err)

	// The whitespace-only entry is dropped.
	require.Len(t, outTexts, 2)
	assert.Equal(t, []string{"first chunk", "third chunk"}, outTexts)

	// Metadata values are coerced to strings; missing metadata becomes empty.
	assert.Equal(t, "7", outMetas[0]["material_id"])
	assert.Equal(t, "Biology", outMetas[0]["title"])
	assert.Empty(t, outMetas[1])

	// Missing ids are synthesized and unique.
	assert.Equal(t, "7_0", outIDs[0])
	assert.NotEmpty(t, outIDs[1])
	assert.NotEqual(t, outIDs[0], outIDs[1])
}

func TestNormalizeStoreInputAllEmptyFails(t *testing.T) {
	_, _, _, err := normalizeStoreInput([]string{"", "   ", "\n"}, nil, nil)
	require.Error(t, err)
}

func TestSanitizeCollectionName(t *testing.T) {
	assert.Equal(t, "material3ab12cd34", sanitizeCollectionName("material_3_ab12cd34"))
	assert.Equal(t, "mycollection", sanitizeCollectionName("my-collection!"))
	assert.Equal(t, DefaultCollectionName, sanitizeCollectionName("!!! ---"))
	assert.Equal(t, DefaultCollectionName, sanitizeCollectionName(""))
}

func TestStoreDocumentUsesSanitizedNameOnRetry(t *testing.T) {
	repo := newFakeChunkRepo()
	repo.rejectNames["bad name!"] = true
	s := NewVectorIndexService(repo, &fakeEmbedder{configured: true})

	collection, err := s.StoreDocument(context.Background(), "bad name!",
		[]string{"chunk one", "chunk two"},
		[]map[string]interface{}{{"material_id": 1}, {"material_id": 1}},
		[]string{"1_0", "1_1"})

	require.NoError(t, err)
	assert.Equal(t, "badname", collection)
	require.Len(t, repo.upserted, 2)
	assert.Equal(t, "badname", repo.upserted[0].Collection)
	assert.Equal(t, "1", repo.upserted[0].Metadata["material_id"])
}

func TestStoreDocumentEmbeddingFailure(t *testing.T) {
	repo := newFakeChunkRepo()
	s := NewVectorIndexService(repo, &fakeEmbedder{configured: true, err: apperr.ErrServiceUnconfigured})

	_, err := s.StoreDocument(context.Background(), "col", []string{"chunk"}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrServiceUnconfigured)
	assert.Empty(t, repo.upserted)
}

func TestSearchMapsRows(t *testing.T) {
	repo := newFakeChunkRepo()
	repo.searchRows = []repository.ChunkSearchRow{
		{
			DocumentChunk: model.DocumentChunk{
				ChunkID:  "1_0",
				Content:  "the cell is the basic unit",
				Metadata: map[string]string{"material_id": "1"},
			},
			Distance: 0.12,
		},
	}
	s := NewVectorIndexService(repo, &fakeEmbedder{configured: true})

	results, err := s.Search(context.Background(), "col", "cells", 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1_0", results[0].ChunkID)
	assert.True(t, strings.Contains(results[0].Content, "cell"))
	assert.Equal(t, 0.12, results[0].Distance)
}

func TestDeleteCollectionDelegates(t *testing.T) {
	repo := newFakeChunkRepo()
	s := NewVectorIndexService(repo, &fakeEmbedder{configured: true})

	require.NoError(t, s.DeleteCollection("gone"))
	assert.Equal(t, []string{"gone"}, repo.deleted)
}
