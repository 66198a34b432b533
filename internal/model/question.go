package model

import (
	"time"

	"gorm.io/gorm"
)

// Question types. Unlike Test, "mixed" is not a question type; a mixed test
// holds questions of the three concrete types.
const (
	QuestionTypeMCQ         = "mcq"
	QuestionTypeShortAnswer = "short_answer"
	QuestionTypeLongAnswer  = "long_answer"
)

type Question struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	TestID       uint           `json:"test_id" gorm:"not null;index"`
	QuestionText string         `json:"question_text" gorm:"type:text;not null"`
	QuestionType string         `json:"question_type" gorm:"not null"` // "mcq", "short_answer", "long_answer"
	Difficulty   string         `json:"difficulty,omitempty"`          // "easy", "medium", "hard"
	Points       float64        `json:"points" gorm:"default:1"`
	Explanation  string         `json:"explanation,omitempty" gorm:"type:text"`
	// Metadata carries the type-specific answer contract: expected answer for
	// short_answer, key points and evaluation criteria for long_answer, and
	// the source material reference for any generated question.
	Metadata  QuestionMetadata `json:"metadata,omitempty" gorm:"type:jsonb;serializer:json"`
	Choices   []Choice         `json:"choices,omitempty" gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	DeletedAt gorm.DeletedAt   `gorm:"index" json:"-"`
}

// QuestionMetadata is the tagged payload behind a question. Only the fields
// relevant to the question's type are populated.
type QuestionMetadata struct {
	MaterialID         uint     `json:"material_id,omitempty"`
	Source             string   `json:"source,omitempty"` // "ai_generated" or "fallback"
	ExpectedAnswer     string   `json:"expected_answer,omitempty"`
	KeyPoints          []string `json:"key_points,omitempty"`
	EvaluationCriteria string   `json:"evaluation_criteria,omitempty"`
}
