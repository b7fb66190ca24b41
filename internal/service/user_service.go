package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"rapidroad/internal/apperror"
	"rapidroad/internal/model"
	"rapidroad/internal/repository"
	"rapidroad/pkg/pagination"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"omitempty,min=8,max=72"`
	Role      string  `json:"role" binding:"required,oneof=customer driver admin superadmin"`
	PhoneE164 *string `json:"phone_e164" binding:"omitempty,e164"`
}

type BootstrapRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type UpdateUserStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended disabled"`
}

// UserService covers operator-side account management
type UserService interface {
	Bootstrap(ctx context.Context, bootstrapToken string, req BootstrapRequest) (*UserResponse, error)
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error)
	GetUser(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context, role, status string, limit, offset int) ([]UserResponse, int64, error)
	UpdateUserStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*UserResponse, error)
}

type userService struct {
	txManager      repository.TransactionManager
	repo           repository.UserRepository
	audit          repository.AuditRepository
	bootstrapToken string
	cost           int
}

// NewUserService returns a new instance of UserService
func NewUserService(txManager repository.TransactionManager, repo repository.UserRepository, audit repository.AuditRepository, bootstrapToken string) UserService {
	return &userService{
		txManager:      txManager,
		repo:           repo,
		audit:          audit,
		bootstrapToken: bootstrapToken,
		cost:           passwordCost,
	}
}

func (s *userService) hash(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// Bootstrap creates the first superadmin. It is refused once any superadmin exists.
func (s *userService) Bootstrap(ctx context.Context, bootstrapToken string, req BootstrapRequest) (*UserResponse, error) {
	if s.bootstrapToken == "" {
		return nil, apperror.Forbidden("bootstrap is disabled")
	}
	if subtle.ConstantTimeCompare([]byte(bootstrapToken), []byte(s.bootstrapToken)) != 1 {
		return nil, apperror.Unauthorized("invalid bootstrap token")
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         model.RoleSuperAdmin,
		Status:       model.UserStatusActive,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.CountByRole(txCtx, model.RoleSuperAdmin)
		if err != nil {
			return fmt.Errorf("failed to count superadmins: %w", err)
		}
		if n > 0 {
			return apperror.Conflict("already bootstrapped")
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.Conflict("email already registered")
			}
			return fmt.Errorf("failed to create superadmin: %w", err)
		}
		return recordAudit(txCtx, s.audit, uuid.Nil, model.ActionBootstrapSuperAdmin, user.ID.String(), user.Email, nil)
	})
	if err != nil {
		return nil, err
	}
	return mapUser(user), nil
}

func (s *userService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	if !model.ValidRole(req.Role) {
		return nil, apperror.BadRequest("invalid role")
	}
	if model.IsAdminRole(req.Role) && actor.Role != model.RoleSuperAdmin {
		return nil, apperror.Forbidden("only a superadmin can create admin accounts")
	}

	email := normalizeEmail(req.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already registered")
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	var phone *string
	if req.PhoneE164 != nil {
		if p := strings.TrimSpace(*req.PhoneE164); p != "" {
			phone = &p
		}
	}

	user := &model.User{
		Email:        email,
		PhoneE164:    phone,
		PasswordHash: hash,
		Role:         req.Role,
		Status:       model.UserStatusActive,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.Conflict("email or phone already registered")
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		details := map[string]interface{}{"role": user.Role}
		return recordAudit(txCtx, s.audit, actor.ID, model.ActionCreateUser, user.ID.String(), user.Email, details)
	})
	if err != nil {
		return nil, err
	}
	return mapUser(user), nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return mapUser(user), nil
}

func (s *userService) ListUsers(ctx context.Context, role, status string, limit, offset int) ([]UserResponse, int64, error) {
	if role != "" && !model.ValidRole(role) {
		return nil, 0, apperror.BadRequest("invalid role")
	}
	if status != "" && !model.ValidUserStatus(status) {
		return nil, 0, apperror.BadRequest("invalid status")
	}

	p := pagination.Clamp(limit, offset)
	users, total, err := s.repo.List(ctx, repository.UserFilter{Role: role, Status: status, Limit: p.Limit, Offset: p.Offset})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapUser(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) UpdateUserStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*UserResponse, error) {
	if !model.ValidUserStatus(status) {
		return nil, apperror.BadRequest("invalid status")
	}
	if id == actor.ID {
		return nil, apperror.BadRequest("cannot change your own status")
	}

	var user *model.User
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperror.NotFound("user not found")
			}
			return fmt.Errorf("failed to load user: %w", err)
		}
		if model.IsAdminRole(u.Role) && actor.Role != model.RoleSuperAdmin {
			return apperror.Forbidden("only a superadmin can change admin accounts")
		}

		previous := u.Status
		if err := s.repo.UpdateStatus(txCtx, id, status); err != nil {
			return fmt.Errorf("failed to update user status: %w", err)
		}
		u.Status = status

		details := map[string]interface{}{"from": previous, "to": status}
		if err := recordAudit(txCtx, s.audit, actor.ID, model.ActionUpdateUserStatus, u.ID.String(), u.Email, details); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mapUser(user), nil
}
