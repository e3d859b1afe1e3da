package service

import (
	"context"
	"fmt"

	"careteam-chat-backend/internal/authz"
	"careteam-chat-backend/internal/models"
	"careteam-chat-backend/internal/repository"
	"careteam-chat-backend/pkg/apperr"
	"careteam-chat-backend/pkg/utils"
)

type UserService struct {
	userRepo     *repository.UserRepository
	hospitalRepo *repository.HospitalRepository
	auditRepo    *repository.AuditRepository
}

func NewUserService(
	userRepo *repository.UserRepository,
	hospitalRepo *repository.HospitalRepository,
	auditRepo *repository.AuditRepository,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		hospitalRepo: hospitalRepo,
		auditRepo:    auditRepo,
	}
}

// CreateUserInput carries the fields needed to create a user
type CreateUserInput struct {
	Name       string
	Email      string
	Password   string
	Role       string
	HospitalID *uint
}

// Create creates a new user. Global admins can create users anywhere;
// hospital admins only in their own hospital and never global admins.
func (s *UserService) Create(ctx context.Context, p authz.Principal, input CreateUserInput) (*models.User, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	newRole := authz.Role(input.Role)
	if !newRole.Valid() {
		return nil, apperr.InvalidInput(fmt.Sprintf("unknown role %q", input.Role))
	}
	if err := authz.CanCreateUser(p, newRole, input.HospitalID); err != nil {
		return nil, err
	}

	// Check if email already exists
	if existing, err := s.userRepo.FindUserByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, apperr.Conflict("e-mail is already registered")
	}

	// Verify the hospital exists for tenant-bound roles
	if input.HospitalID != nil {
		if _, err := s.hospitalRepo.GetHospitalByID(ctx, *input.HospitalID); err != nil {
			return nil, err
		}
	}

	passwordHash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         input.Role,
		HospitalID:   input.HospitalID,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	_ = s.auditRepo.CreateAuditLog(ctx, &p.UserID, "user_create",
		fmt.Sprintf("Created user %s (role: %s)", user.Email, user.Role))

	return user, nil
}

// ListByHospital retrieves the users of a hospital; the actor must be a
// global admin or belong to that hospital.
func (s *UserService) ListByHospital(ctx context.Context, p authz.Principal, hospitalID uint) ([]models.User, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	if err := authz.CanListUsers(p, hospitalID); err != nil {
		return nil, err
	}
	return s.userRepo.ListByHospital(ctx, hospitalID)
}

// FindByID retrieves a single user. Tenant-bound actors can only see
// users of their own hospital; global administrators are visible to
// other global administrators only.
func (s *UserService) FindByID(ctx context.Context, p authz.Principal, id uint) (*models.User, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	user, err := s.userRepo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role == authz.RoleGlobalAdmin {
		return user, nil
	}
	if user.HospitalID == nil {
		return nil, apperr.NotFound("user not found")
	}
	if err := authz.CanListUsers(p, *user.HospitalID); err != nil {
		return nil, err
	}
	return user, nil
}
