package model

import (
	"time"

	"gorm.io/gorm"
)

// Embedding status values for a material. The status only moves forward:
// pending -> processing -> completed | failed.
const (
	EmbeddingStatusPending    = "pending"
	EmbeddingStatusProcessing = "processing"
	EmbeddingStatusCompleted  = "completed"
	EmbeddingStatusFailed     = "failed"
)

// Material is an uploaded study document owned by a user.
type Material struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	UserID       uint           `json:"user_id" gorm:"not null;index"`
	Title        string         `json:"title" gorm:"not null"`
	Description  string         `json:"description,omitempty" gorm:"type:text"`
	FilePath     string         `json:"file_path,omitempty"`
	ContentText  string         `json:"-" gorm:"type:text"` // extracted text cache
	FileType     string         `json:"file_type,omitempty"`
	Author       string         `json:"author,omitempty"`
	PageCount    int            `json:"page_count,omitempty"`
	WordCount    int            `json:"word_count,omitempty"`
	CollectionID string         `json:"collection_id,omitempty"` // vector collection for this material's chunks
	Status       string         `json:"status" gorm:"default:'pending'"`
	ChunkCount   int            `json:"chunk_count,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
