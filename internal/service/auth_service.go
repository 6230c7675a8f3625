package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// AuthService handles account registration and credential flows.
type AuthService struct {
	accounts   repository.AccountRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAuthService constructs the auth service.
func NewAuthService(accounts repository.AccountRepository, tokens *auth.TokenManager, bcryptCost int) *AuthService {
	return &AuthService{accounts: accounts, tokens: tokens, bcryptCost: bcryptCost}
}

// RegisterInput carries registration payload.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     domain.Role
}

// LoginResult pairs the issued token with the account it represents.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *domain.Account
}

// Register creates an account. Super admin accounts are provisioned out of
// band, never through self-registration.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Name == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	switch input.Role {
	case domain.RoleTenant, domain.RoleLandlord, domain.RoleCaretaker:
	case domain.RoleSuperAdmin:
		return nil, apperrors.NewForbidden("super admin accounts cannot self-register")
	default:
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}

	if existing, err := s.accounts.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		PasswordHash: hash,
		Role:         input.Role,
		Status:       domain.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// Login verifies credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if account.Status != domain.AccountStatusActive {
		return nil, apperrors.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

// ChangePassword rotates an account's password after verifying the current
// one.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("account", nil)
		}
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, current); err != nil {
		return apperrors.NewUnauthorized("current password incorrect")
	}
	if len(next) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
