package model

import (
	"time"

	"gorm.io/gorm"
)

// StudentAnswer holds either a selected choice (MCQ) or free text. IsCorrect
// and PointsAwarded are nil while grading is pending; nil is distinct from an
// evaluated zero-point answer.
type StudentAnswer struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	AttemptID        uint           `json:"attempt_id" gorm:"not null;index"`
	QuestionID       uint           `json:"question_id" gorm:"not null;index"`
	Question         Question       `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	AnswerText       string         `json:"answer_text,omitempty" gorm:"type:text"`
	SelectedChoiceID *uint          `json:"selected_choice_id,omitempty"`
	IsCorrect        *bool          `json:"is_correct,omitempty"`
	PointsAwarded    *float64       `json:"points_awarded,omitempty"`
	Feedback         string         `json:"feedback,omitempty" gorm:"type:text"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// Graded reports whether this answer has been evaluated. The pair of nullable
// columns is only ever written together, so checking one is enough.
func (a *StudentAnswer) Graded() bool {
	return a.IsCorrect != nil && a.PointsAwarded != nil
}
