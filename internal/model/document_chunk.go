package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// VectorCollection is a named partition of the vector index. One material's
// chunks all live in one collection.
type VectorCollection struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `json:"name" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentChunk is one embedded text span inside a collection. Rows are
// upserted by ChunkID, so re-processing a material overwrites its chunks in
// place rather than duplicating them.
type DocumentChunk struct {
	ID         uint              `gorm:"primarykey" json:"id"`
	ChunkID    string            `json:"chunk_id" gorm:"not null;uniqueIndex"`
	Collection string            `json:"collection" gorm:"not null;index"`
	Content    string            `json:"content" gorm:"type:text;not null"`
	Metadata   map[string]string `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	Embedding  pgvector.Vector   `json:"-" gorm:"type:vector(768)"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
