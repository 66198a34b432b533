package model

import (
	"time"

	"gorm.io/gorm"
)

// TestAttempt is one user's run through a test. Score and MaxScore stay nil
// until the attempt is completed.
type TestAttempt struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	TestID      uint            `json:"test_id" gorm:"not null;index"`
	Test        Test            `json:"test,omitempty" gorm:"foreignKey:TestID"`
	UserID      uint            `json:"user_id" gorm:"not null;index"`
	StartedAt   time.Time       `json:"started_at" gorm:"autoCreateTime"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Score       *float64        `json:"score,omitempty"`
	MaxScore    *float64        `json:"max_score,omitempty"`
	Feedback    string          `json:"feedback,omitempty" gorm:"type:text"`
	Answers     []StudentAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}
