package repository

import (
	"github.com/lshigami/Tamarin/internal/model"
	"gorm.io/gorm"
)

type AnswerRepository interface {
	Create(answer *model.StudentAnswer) error
	Update(answer *model.StudentAnswer) error
	FindByAttemptID(attemptID uint) ([]model.StudentAnswer, error)
	FindByAttemptAndQuestion(attemptID uint, questionID uint) (*model.StudentAnswer, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) Create(answer *model.StudentAnswer) error {
	return r.db.Create(answer).Error
}

func (r *answerRepository) Update(answer *model.StudentAnswer) error {
	// Save updates all fields, including the graded pair and feedback.
	return r.db.Save(answer).Error
}

func (r *answerRepository) FindByAttemptID(attemptID uint) ([]model.StudentAnswer, error) {
	var answers []model.StudentAnswer
	if err := r.db.Where("attempt_id = ?", attemptID).Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepository) FindByAttemptAndQuestion(attemptID uint, questionID uint) (*model.StudentAnswer, error) {
	var answer model.StudentAnswer
	err := r.db.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&answer).Error
	if err != nil {
		return nil, err
	}
	return &answer, nil
}
