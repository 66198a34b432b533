package dto

import "time"

type CreateTestRequest struct {
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description"`
	TestType         string `json:"test_type" binding:"required,oneof=mcq short_answer long_answer mixed"`
	MaterialIDs      []uint `json:"material_ids"`
	NumQuestions     int    `json:"num_questions" binding:"omitempty,min=1,max=50"`
	Difficulty       string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Instructions     string `json:"instructions"`
	TimeLimitMinutes *int   `json:"time_limit_minutes" binding:"omitempty,min=1"`
}

type ChoiceResponse struct {
	ID         uint   `json:"id"`
	ChoiceText string `json:"choice_text"`
	IsCorrect  bool   `json:"is_correct"`
}

type QuestionResponse struct {
	ID           uint             `json:"id"`
	TestID       uint             `json:"test_id"`
	QuestionText string           `json:"question_text"`
	QuestionType string           `json:"question_type"`
	Difficulty   string           `json:"difficulty,omitempty"`
	Points       float64          `json:"points"`
	Explanation  string           `json:"explanation,omitempty"`
	Choices      []ChoiceResponse `json:"choices,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

type TestResponse struct {
	ID               uint               `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	TestType         string             `json:"test_type"`
	TotalQuestions   int                `json:"total_questions"`
	TimeLimitMinutes *int               `json:"time_limit_minutes,omitempty"`
	Questions        []QuestionResponse `json:"questions,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// TestSummaryResponse is the list view of a test, without its questions.
type TestSummaryResponse struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	TestType         string    `json:"test_type"`
	TotalQuestions   int       `json:"total_questions"`
	TimeLimitMinutes *int      `json:"time_limit_minutes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
