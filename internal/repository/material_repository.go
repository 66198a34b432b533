package repository

import (
	"github.com/lshigami/Tamarin/internal/model"
	"gorm.io/gorm"
)

type MaterialRepository interface {
	Create(material *model.Material) error
	Update(material *model.Material) error
	FindByID(id uint) (*model.Material, error)
	FindByIDAndUser(id uint, userID uint) (*model.Material, error)
	FindAllByUser(userID uint) ([]model.Material, error)
	Delete(id uint) error
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(material *model.Material) error {
	return r.db.Create(material).Error
}

func (r *materialRepository) Update(material *model.Material) error {
	return r.db.Save(material).Error
}

func (r *materialRepository) FindByID(id uint) (*model.Material, error) {
	var material model.Material
	if err := r.db.First(&material, id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) FindByIDAndUser(id uint, userID uint) (*model.Material, error) {
	var material model.Material
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&material).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) FindAllByUser(userID uint) ([]model.Material, error) {
	var materials []model.Material
	if err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepository) Delete(id uint) error {
	return r.db.Delete(&model.Material{}, id).Error
}
