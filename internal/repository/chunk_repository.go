package repository

import (
	"encoding/json"
	"errors"

	"github.com/lshigami/Tamarin/internal/model"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChunkSearchRow is one nearest-neighbour match with its cosine distance.
type ChunkSearchRow struct {
	model.DocumentChunk
	Distance float64
}

type ChunkRepository interface {
	EnsureCollection(name string) error
	UpsertChunks(chunks []model.DocumentChunk) error
	SearchByEmbedding(collection string, embedding pgvector.Vector, k int, filter map[string]string) ([]ChunkSearchRow, error)
	DeleteCollection(name string) error
}

type chunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

func (r *chunkRepository) EnsureCollection(name string) error {
	var existing model.VectorCollection
	err := r.db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.Create(&model.VectorCollection{Name: name}).Error
}

func (r *chunkRepository) UpsertChunks(chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	// Re-processing a material rewrites the same chunk ids, so writes are
	// additive-by-id rather than append-only.
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"collection", "content", "metadata", "embedding", "updated_at"}),
	}).Create(&chunks).Error
}

func (r *chunkRepository) SearchByEmbedding(collection string, embedding pgvector.Vector, k int, filter map[string]string) ([]ChunkSearchRow, error) {
	var rows []ChunkSearchRow
	query := r.db.Model(&model.DocumentChunk{}).
		Select("document_chunks.*, embedding <=> ? AS distance", embedding).
		Where("collection = ?", collection)
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, err
		}
		query = query.Where("metadata @> ?", string(filterJSON))
	}
	err := query.Order(clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{embedding}}).
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chunkRepository) DeleteCollection(name string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", name).Delete(&model.DocumentChunk{}).Error; err != nil {
			return err
		}
		// Deleting a collection that does not exist is a no-op, not an error.
		return tx.Where("name = ?", name).Delete(&model.VectorCollection{}).Error
	})
}
