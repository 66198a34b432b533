package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lshigami/Tamarin/internal/apperr"
	"github.com/lshigami/Tamarin/internal/model"
	"github.com/lshigami/Tamarin/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaterialService owns the material lifecycle from upload through
// vectorization to deletion.
type MaterialService interface {
	Upload(ctx context.Context, userID uint, filename string, data []byte, title, description string) (*model.Material, error)
	Reprocess(ctx context.Context, materialID, userID uint) (*model.Material, error)
	GetByID(materialID, userID uint) (*model.Material, error)
	ListByUser(userID uint) ([]model.Material, error)
	Delete(ctx context.Context, materialID, userID uint) error
	Search(ctx context.Context, materialID, userID uint, query string, k int) ([]SearchResult, error)
}

type materialService struct {
	materialRepo repository.MaterialRepository
	storage      FileStorageService
	extractor    TextExtractor
	vectorIndex  VectorIndexService
	maxChunkSize int
	chunkOverlap int
}

func NewMaterialService(
	materialRepo repository.MaterialRepository,
	storage FileStorageService,
	extractor TextExtractor,
	vectorIndex VectorIndexService,
	maxChunkSize int,
	chunkOverlap int,
) MaterialService {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &materialService{
		materialRepo: materialRepo,
		storage:      storage,
		extractor:    extractor,
		vectorIndex:  vectorIndex,
		maxChunkSize: maxChunkSize,
		chunkOverlap: chunkOverlap,
	}
}

func (s *materialService) Upload(ctx context.Context, userID uint, filename string, data []byte, title, description string) (*model.Material, error) {
	fileType := normalizeFileType(filepath.Ext(filename))
	if !s.extractor.Supported(fileType) {
		return nil, fmt.Errorf("file type %q: %w", fileType, apperr.ErrUnsupportedFormat)
	}

	path, err := s.storage.Save(userID, filename, data)
	if err != nil {
		return nil, err
	}

	if title == "" {
		base := filepath.Base(filename)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	material := &model.Material{
		UserID:      userID,
		Title:       title,
		Description: description,
		FilePath:    path,
		FileType:    fileType,
		Status:      model.EmbeddingStatusProcessing,
	}
	if err := s.materialRepo.Create(material); err != nil {
		return nil, fmt.Errorf("failed to create material: %w", err)
	}

	if err := s.process(ctx, material, data); err != nil {
		return nil, err
	}
	return material, nil
}

// Reprocess re-runs extraction and vectorization over the stored file. The
// material's collection id is stable across runs, so chunk writes overwrite
// the previous run's entries.
func (s *materialService) Reprocess(ctx context.Context, materialID, userID uint) (*model.Material, error) {
	material, err := s.findOwned(materialID, userID)
	if err != nil {
		return nil, err
	}

	data, err := s.storage.Read(material.FilePath)
	if err != nil {
		return nil, err
	}

	material.Status = model.EmbeddingStatusProcessing
	material.ErrorMessage = ""
	if err := s.materialRepo.Update(material); err != nil {
		return nil, fmt.Errorf("failed to update material: %w", err)
	}

	if err := s.process(ctx, material, data); err != nil {
		return nil, err
	}
	return material, nil
}

// process runs extract, chunk and embed over the file bytes and records the
// outcome on the material. An extraction failure marks the material failed
// and is returned to the caller; a vectorization failure marks the material
// failed but the material row is still the caller's answer.
func (s *materialService) process(ctx context.Context, material *model.Material, data []byte) error {
	text, info, err := s.extractor.Extract(data, material.FileType)
	if err != nil {
		s.markFailed(material, err.Error())
		return err
	}
	if info != nil {
		material.PageCount = info.PageCount
		material.WordCount = info.WordCount
		if info.Title != "" {
			material.Title = info.Title
		}
		if info.Author != "" {
			material.Author = info.Author
		}
	}
	material.ContentText = text

	if strings.TrimSpace(text) == "" {
		err := fmt.Errorf("no text content could be extracted from the document: %w", apperr.ErrExtractionFailed)
		s.markFailed(material, err.Error())
		return err
	}

	if !s.vectorIndex.Configured() {
		material.Status = model.EmbeddingStatusPending
		if err := s.materialRepo.Update(material); err != nil {
			return fmt.Errorf("failed to update material: %w", err)
		}
		log.Info().Uint("materialID", material.ID).Msg("vector index not configured, material left pending")
		return nil
	}

	if err := s.vectorize(ctx, material, text); err != nil {
		log.Error().Err(err).Uint("materialID", material.ID).Msg("material vectorization failed")
		s.markFailed(material, err.Error())
		return nil
	}
	return nil
}

func (s *materialService) vectorize(ctx context.Context, material *model.Material, text string) error {
	chunks := ChunkText(text, s.maxChunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		return fmt.Errorf("failed to create text chunks: %w", apperr.ErrInsufficientContent)
	}

	if material.CollectionID == "" {
		material.CollectionID = fmt.Sprintf("material_%d_%s", material.ID, uuid.NewString()[:8])
	}

	texts := make([]string, len(chunks))
	metadatas := make([]map[string]interface{}, len(chunks))
	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
		metadatas[i] = map[string]interface{}{
			"material_id": material.ID,
			"chunk_id":    chunk.Index,
			"title":       material.Title,
			"author":      material.Author,
		}
		ids[i] = fmt.Sprintf("%d_%d", material.ID, chunk.Index)
	}

	collection, err := s.vectorIndex.StoreDocument(ctx, material.CollectionID, texts, metadatas, ids)
	if err != nil {
		return err
	}

	material.CollectionID = collection
	material.ChunkCount = len(chunks)
	material.Status = model.EmbeddingStatusCompleted
	if err := s.materialRepo.Update(material); err != nil {
		return fmt.Errorf("failed to update material: %w", err)
	}
	return nil
}

func (s *materialService) markFailed(material *model.Material, reason string) {
	material.Status = model.EmbeddingStatusFailed
	material.ErrorMessage = reason
	if err := s.materialRepo.Update(material); err != nil {
		log.Error().Err(err).Uint("materialID", material.ID).Msg("failed to record material failure")
	}
}

func (s *materialService) GetByID(materialID, userID uint) (*model.Material, error) {
	return s.findOwned(materialID, userID)
}

func (s *materialService) ListByUser(userID uint) ([]model.Material, error) {
	return s.materialRepo.FindAllByUser(userID)
}

// Delete removes the stored file, the vector collection and the material
// row. File and collection cleanup are best effort; the row is the source
// of truth.
func (s *materialService) Delete(ctx context.Context, materialID, userID uint) error {
	material, err := s.findOwned(materialID, userID)
	if err != nil {
		return err
	}

	if material.FilePath != "" {
		if err := s.storage.Delete(material.FilePath); err != nil {
			log.Warn().Err(err).Str("path", material.FilePath).Msg("failed to delete stored file")
		}
	}
	if material.CollectionID != "" {
		if err := s.vectorIndex.DeleteCollection(material.CollectionID); err != nil {
			log.Warn().Err(err).Str("collection", material.CollectionID).Msg("failed to delete vector collection")
		}
	}
	return s.materialRepo.Delete(material.ID)
}

func (s *materialService) Search(ctx context.Context, materialID, userID uint, query string, k int) ([]SearchResult, error) {
	material, err := s.findOwned(materialID, userID)
	if err != nil {
		return nil, err
	}
	if material.CollectionID == "" {
		return nil, fmt.Errorf("material %d has no vector collection: %w", materialID, apperr.ErrValidationFailed)
	}
	return s.vectorIndex.Search(ctx, material.CollectionID, query, k, nil)
}

func (s *materialService) findOwned(materialID, userID uint) (*model.Material, error) {
	material, err := s.materialRepo.FindByIDAndUser(materialID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("material %d: %w", materialID, apperr.ErrNotFound)
		}
		return nil, err
	}
	return material, nil
}
