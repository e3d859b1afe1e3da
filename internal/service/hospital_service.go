package service

import (
	"context"
	"fmt"

	"careteam-chat-backend/internal/authz"
	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/internal/repository"
	"careteam-chat-backend/pkg/apperr"
)

type HospitalService struct {
	hospitalRepo *repository.HospitalRepository
	auditRepo    *repository.AuditRepository
}

func NewHospitalService(hospitalRepo *repository.HospitalRepository, auditRepo *repository.AuditRepository) *HospitalService {
	return &HospitalService{
		hospitalRepo: hospitalRepo,
		auditRepo:    auditRepo,
	}
}

// GetAll retrieves all hospitals; global admin only
func (s *HospitalService) GetAll(ctx context.Context, p authz.Principal) ([]models.Hospital, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := authz.CanManageHospitals(p); err != nil {
		return nil, err
	}
	return s.hospitalRepo.GetAllHospitals(ctx)
}

// GetByID retrieves a hospital; the actor must be a global admin or
// belong to the hospital.
func (s *HospitalService) GetByID(ctx context.Context, p authz.Principal, id uint) (*models.Hospital, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if p.Role != authz.RoleGlobalAdmin {
		if p.HospitalID == nil || *p.HospitalID != id {
			return nil, apperr.Forbidden("user does not belong to this hospital")
		}
	}
	return s.hospitalRepo.GetHospitalByID(ctx, id)
}

// Create creates a hospital; global admin only
func (s *HospitalService) Create(ctx context.Context, p authz.Principal, hospital *models.Hospital) error {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := authz.CanManageHospitals(p); err != nil {
		return err
	}
	if err := s.hospitalRepo.CreateHospital(ctx, hospital); err != nil {
		return err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "hospital_create",
		fmt.Sprintf("Created hospital %q (id: %d)", hospital.Name, hospital.ID))

	return nil
}

// Update updates a hospital; global admin only
func (s *HospitalService) Update(ctx context.Context, p authz.Principal, hospital *models.Hospital) error {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := authz.CanManageHospitals(p); err != nil {
		return err
	}
	if _, err := s.hospitalRepo.GetHospitalByID(ctx, hospital.ID); err != nil {
		return err
	}
	if err := s.hospitalRepo.UpdateHospital(ctx, hospital); err != nil {
		return err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "hospital_update",
		fmt.Sprintf("Updated hospital %q (id: %d)", hospital.Name, hospital.ID))

	return nil
}

// Delete soft deletes a hospital; global admin only
func (s *HospitalService) Delete(ctx context.Context, p authz.Principal, id uint) error {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := authz.CanManageHospitals(p); err != nil {
		return err
	}
	if _, err := s.hospitalRepo.GetHospitalByID(ctx, id); err != nil {
		return err
	}
	if err := s.hospitalRepo.SoftDeleteHospital(ctx, id); err != nil {
		return err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "hospital_delete",
		fmt.Sprintf("Deleted hospital %d", id))

	return nil
}
