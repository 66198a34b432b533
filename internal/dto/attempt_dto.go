package dto

import "time"

type SubmitAnswerRequest struct {
	QuestionID       uint   `json:"question_id" binding:"required"`
	AnswerText       string `json:"answer_text"`
	SelectedChoiceID *uint  `json:"selected_choice_id"`
}

type AnswerResponse struct {
	ID               uint     `json:"id"`
	QuestionID       uint     `json:"question_id"`
	AnswerText       string   `json:"answer_text,omitempty"`
	SelectedChoiceID *uint    `json:"selected_choice_id,omitempty"`
	IsCorrect        *bool    `json:"is_correct"`
	PointsAwarded    *float64 `json:"points_awarded"`
	Feedback         string   `json:"feedback,omitempty"`
}

type AttemptResponse struct {
	ID          uint             `json:"id"`
	TestID      uint             `json:"test_id"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Score       *float64         `json:"score"`
	MaxScore    *float64         `json:"max_score"`
	Feedback    string           `json:"feedback,omitempty"`
	Answers     []AnswerResponse `json:"answers,omitempty"`
}
