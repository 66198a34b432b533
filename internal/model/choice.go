package model

import (
	"time"

	"gorm.io/gorm"
)

// Choice is one option of an MCQ question. Exactly one choice per question is
// flagged correct by construction at persist time.
type Choice struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	QuestionID uint           `json:"question_id" gorm:"not null;index"`
	ChoiceText string         `json:"choice_text" gorm:"type:text;not null"`
	IsCorrect  bool           `json:"is_correct" gorm:"default:false"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
