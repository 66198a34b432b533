package model

import (
	"time"

	"gorm.io/gorm"
)

// Test type values. A test's type constrains the shapes of its questions.
const (
	TestTypeMCQ         = "mcq"
	TestTypeShortAnswer = "short_answer"
	TestTypeLongAnswer  = "long_answer"
	TestTypeMixed       = "mixed"
)

type Test struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	UserID           uint           `json:"user_id" gorm:"not null;index"`
	Title            string         `json:"title" gorm:"not null"`
	Description      string         `json:"description,omitempty" gorm:"type:text"`
	TestType         string         `json:"test_type" gorm:"not null"` // "mcq", "short_answer", "long_answer", "mixed"
	TotalQuestions   int            `json:"total_questions" gorm:"default:0"`
	TimeLimitMinutes *int           `json:"time_limit_minutes,omitempty"`
	Questions        []Question     `json:"questions,omitempty" gorm:"foreignKey:TestID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Attempts         []TestAttempt  `json:"attempts,omitempty" gorm:"foreignKey:TestID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func ValidTestType(t string) bool {
	switch t {
	case TestTypeMCQ, TestTypeShortAnswer, TestTypeLongAnswer, TestTypeMixed:
		return true
	}
	return false
}
