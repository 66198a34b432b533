package repository

import (
	"github.com/lshigami/Tamarin/internal/model"
	"gorm.io/gorm"
)

type TestAttemptRepository interface {
	Create(attempt *model.TestAttempt) error
	Update(attempt *model.TestAttempt) error
	FindByID(id uint) (*model.TestAttempt, error)
	FindByIDWithAnswers(id uint) (*model.TestAttempt, error)
	FindAllByTestAndUser(testID uint, userID uint) ([]model.TestAttempt, error)
	FindCompletedByUser(userID uint) ([]model.TestAttempt, error)
}

type testAttemptRepository struct {
	db *gorm.DB
}

func NewTestAttemptRepository(db *gorm.DB) TestAttemptRepository {
	return &testAttemptRepository{db: db}
}

func (r *testAttemptRepository) Create(attempt *model.TestAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *testAttemptRepository) Update(attempt *model.TestAttempt) error {
	return r.db.Save(attempt).Error
}

func (r *testAttemptRepository) FindByID(id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	if err := r.db.First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindByIDWithAnswers(id uint) (*model.TestAttempt, error) {
	var attempt model.TestAttempt
	err := r.db.
		Preload("Test").
		Preload("Answers.Question.Choices").
		Preload("Answers.Question").
		Preload("Answers").
		First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindAllByTestAndUser(testID uint, userID uint) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.Where("test_id = ? AND user_id = ?", testID, userID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *testAttemptRepository) FindCompletedByUser(userID uint) ([]model.TestAttempt, error) {
	var attempts []model.TestAttempt
	err := r.db.Preload("Test").
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Order("completed_at DESC").
		Find(&attempts).Error
	return attempts, err
}
