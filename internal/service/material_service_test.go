package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/lshigami/Tamarin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMaterialRepo struct {
	materials map[uint]*model.Material
	nextID    uint
	statuses  []string
}

func newFakeMaterialRepo() *fakeMaterialRepo {
	return &fakeMaterialRepo{materials: map[uint]*model.Material{}}
}

func (f *fakeMaterialRepo) Create(m *model.Material) error {
	f.nextID++
	m.ID = f.nextID
	f.materials[m.ID] = m
	f.statuses = append(f.statuses, m.Status)
	return nil
}

func (f *fakeMaterialRepo) Update(m *model.Material) error {
	f.materials[m.ID] = m
	f.statuses = append(f.statuses, m.Status)
	return nil
}

func (f *fakeMaterialRepo) FindByID(id uint) (*model.Material, error) {
	m, ok := f.materials[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (f *fakeMaterialRepo) FindByIDAndUser(id uint, userID uint) (*model.Material, error) {
	m, ok := f.materials[id]
	if !ok || m.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (f *fakeMaterialRepo) FindAllByUser(userID uint) ([]model.Material, error) {
	var out []model.Material
	for _, m := range f.materials {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMaterialRepo) Delete(id uint) error {
	delete(f.materials, id)
	return nil
}

type fakeUploadStorage struct {
	files map[string][]byte
}

func newFakeUploadStorage() *fakeUploadStorage {
	return &fakeUploadStorage{files: map[string][]byte{}}
}

func (f *fakeUploadStorage) Save(ownerID uint, filename string, data []byte) (string, error) {
	path := fmt.Sprintf("%d/%s", ownerID, filename)
	f.files[path] = data
	return path, nil
}

func (f *fakeUploadStorage) Read(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (f *fakeUploadStorage) Delete(path string) error {
	delete(f.files, path)
	return nil
}

type fakeExtractor struct {
	text string
	info *DocumentInfo
	err  error
}

func (f *fakeExtractor) Extract(data []byte, fileType string) (string, *DocumentInfo, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.text, f.info, nil
}

func (f *fakeExtractor) Supported(fileType string) bool {
	return fileType == "txt" || fileType == "pdf"
}

type fakeVectorIndex struct {
	configured  bool
	storeErr    error
	storedTexts []string
	deleted     []string
}

func (f *fakeVectorIndex) StoreDocument(ctx context.Context, collection string, texts []string, metadatas []map[string]interface{}, ids []string) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.storedTexts = texts
	return collection, nil
}

func (f *fakeVectorIndex) Search(ctx context.Context, collection string, query string, k int, filter map[string]string) ([]SearchResult, error) {
	return nil, nil
}

func (f *fakeVectorIndex) DeleteCollection(collection string) error {
	f.deleted = append(f.deleted, collection)
	return nil
}

func (f *fakeVectorIndex) Configured() bool { return f.configured }

// threeSentenceText packs into exactly three chunks at the 1000-byte limit:
// each sentence is 636 bytes, so no two fit in one chunk.
func threeSentenceText() string {
	sentence := strings.Repeat("neuron ", 90) + "fires."
	return sentence + " " + sentence + " " + sentence
}

func TestUploadProcessesThroughCompleted(t *testing.T) {
	repo := newFakeMaterialRepo()
	index := &fakeVectorIndex{configured: true}
	extractor := &fakeExtractor{text: threeSentenceText(), info: &DocumentInfo{PageCount: 2, WordCount: 273}}
	s := NewMaterialService(repo, newFakeUploadStorage(), extractor, index, 1000, 200)

	material, err := s.Upload(context.Background(), 1, "notes.txt", []byte("raw bytes"), "", "bio notes")
	require.NoError(t, err)

	assert.Equal(t, model.EmbeddingStatusCompleted, material.Status)
	assert.Equal(t, 3, material.ChunkCount)
	assert.True(t, strings.HasPrefix(material.CollectionID, "material_1_"), material.CollectionID)
	assert.Len(t, index.storedTexts, 3)
	assert.Equal(t, "notes", material.Title)
	assert.Equal(t, 2, material.PageCount)
	assert.Equal(t, 273, material.WordCount)

	// The row is created processing and ends completed.
	require.NotEmpty(t, repo.statuses)
	assert.Equal(t, model.EmbeddingStatusProcessing, repo.statuses[0])
	assert.Equal(t, model.EmbeddingStatusCompleted, repo.statuses[len(repo.statuses)-1])
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	repo := newFakeMaterialRepo()
	s := NewMaterialService(repo, newFakeUploadStorage(), &fakeExtractor{}, &fakeVectorIndex{}, 1000, 200)

	_, err := s.Upload(context.Background(), 1, "slides.ppt", []byte("x"), "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
	assert.Empty(t, repo.materials)
}

func TestUploadLeavesPendingWhenIndexUnconfigured(t *testing.T) {
	repo := newFakeMaterialRepo()
	extractor := &fakeExtractor{text: threeSentenceText()}
	s := NewMaterialService(repo, newFakeUploadStorage(), extractor, &fakeVectorIndex{configured: false}, 1000, 200)

	material, err := s.Upload(context.Background(), 1, "notes.txt", []byte("raw"), "", "")
	require.NoError(t, err)
	assert.Equal(t, model.EmbeddingStatusPending, material.Status)
	assert.Zero(t, material.ChunkCount)
	assert.Empty(t, material.CollectionID)
}

func TestUploadMarksFailedWhenVectorizationFails(t *testing.T) {
	repo := newFakeMaterialRepo()
	extractor := &fakeExtractor{text: threeSentenceText()}
	index := &fakeVectorIndex{configured: true, storeErr: errors.New("embedding backend down")}
	s := NewMaterialService(repo, newFakeUploadStorage(), extractor, index, 1000, 200)

	material, err := s.Upload(context.Background(), 1, "notes.txt", []byte("raw"), "", "")
	require.NoError(t, err)
	assert.Equal(t, model.EmbeddingStatusFailed, material.Status)
	assert.Contains(t, material.ErrorMessage, "embedding backend down")
}

func TestUploadExtractionFailurePropagates(t *testing.T) {
	repo := newFakeMaterialRepo()
	extractor := &fakeExtractor{err: fmt.Errorf("corrupt stream: %w", apperr.ErrExtractionFailed)}
	s := NewMaterialService(repo, newFakeUploadStorage(), extractor, &fakeVectorIndex{configured: true}, 1000, 200)

	_, err := s.Upload(context.Background(), 1, "notes.pdf", []byte("raw"), "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrExtractionFailed)
	require.Len(t, repo.materials, 1)
	assert.Equal(t, model.EmbeddingStatusFailed, repo.materials[1].Status)
}

func TestReprocessKeepsCollectionStable(t *testing.T) {
	repo := newFakeMaterialRepo()
	storage := newFakeUploadStorage()
	extractor := &fakeExtractor{text: threeSentenceText()}
	index := &fakeVectorIndex{configured: true}
	s := NewMaterialService(repo, storage, extractor, index, 1000, 200)

	material, err := s.Upload(context.Background(), 1, "notes.txt", []byte("raw"), "", "")
	require.NoError(t, err)
	collection := material.CollectionID

	reprocessed, err := s.Reprocess(context.Background(), material.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.EmbeddingStatusCompleted, reprocessed.Status)
	assert.Equal(t, collection, reprocessed.CollectionID)
}

func TestDeleteRemovesFileAndCollection(t *testing.T) {
	repo := newFakeMaterialRepo()
	storage := newFakeUploadStorage()
	extractor := &fakeExtractor{text: threeSentenceText()}
	index := &fakeVectorIndex{configured: true}
	s := NewMaterialService(repo, storage, extractor, index, 1000, 200)

	material, err := s.Upload(context.Background(), 1, "notes.txt", []byte("raw"), "", "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), material.ID, 1))
	assert.Empty(t, storage.files)
	assert.Equal(t, []string{material.CollectionID}, index.deleted)
	_, err = s.GetByID(material.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearchRequiresCollection(t *testing.T) {
	repo := newFakeMaterialRepo()
	require.NoError(t, repo.Create(&model.Material{UserID: 1, Status: model.EmbeddingStatusPending}))
	s := NewMaterialService(repo, newFakeUploadStorage(), &fakeExtractor{}, &fakeVectorIndex{}, 1000, 200)

	_, err := s.Search(context.Background(), 1, 1, "osmosis", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}
