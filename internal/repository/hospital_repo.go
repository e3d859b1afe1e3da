package repository

import (
	"context"
	"errors"

	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/pkg/apperr"

	"gorm.io/gorm"
)

type HospitalRepository struct {
	db *gorm.DB
}

func NewHospitalRepo(db *gorm.DB) *HospitalRepository {
	return &HospitalRepository{db: db}
}

// GetAllHospitals retrieves all active hospitals
func (r *HospitalRepository) GetAllHospitals(ctx context.Context) ([]models.Hospital, error) {
	var hospitals []models.Hospital
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&hospitals).Error
	if err != nil {
		return nil, wrapDBError("list hospitals", err)
	}
	return hospitals, nil
}

// GetHospitalByID retrieves a hospital by ID
func (r *HospitalRepository) GetHospitalByID(ctx context.Context, id uint) (*models.Hospital, error) {
	var hospital models.Hospital
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&hospital).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("hospital not found")
		}
		return nil, wrapDBError("get hospital", err)
	}
	return &hospital, nil
}

// CreateHospital creates a new hospital
func (r *HospitalRepository) CreateHospital(ctx context.Context, hospital *models.Hospital) error {
	return wrapDBError("create hospital", r.db.WithContext(ctx).Create(hospital).Error)
}

// UpdateHospital updates an existing hospital
func (r *HospitalRepository) UpdateHospital(ctx context.Context, hospital *models.Hospital) error {
	return wrapDBError("update hospital", r.db.WithContext(ctx).Save(hospital).Error)
}

// SoftDeleteHospital soft deletes a hospital by setting is_active to false
func (r *HospitalRepository) SoftDeleteHospital(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.Hospital{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	return wrapDBError("delete hospital", err)
}
