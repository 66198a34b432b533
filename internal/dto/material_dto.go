package dto

import "time"

// UploadMaterialRequest carries the multipart form fields that ride along
// with the uploaded file.
type UploadMaterialRequest struct {
	Title       string `form:"title"`
	Description string `form:"description"`
}

type MaterialResponse struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	FileType     string    `json:"file_type"`
	Author       string    `json:"author,omitempty"`
	PageCount    int       `json:"page_count"`
	WordCount    int       `json:"word_count"`
	Status       string    `json:"status"`
	ChunkCount   int       `json:"chunk_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SearchMaterialRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k" binding:"omitempty,min=1,max=50"`
}

type SearchResultResponse struct {
	ChunkID  string            `json:"chunk_id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Distance float64           `json:"distance"`
}
