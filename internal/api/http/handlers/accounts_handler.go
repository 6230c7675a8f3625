package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/service"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// AccountsHandler serves registration, login and profile endpoints.
type AccountsHandler struct {
	authService *service.AuthService
}

// NewAccountsHandler constructs the handler.
func NewAccountsHandler(authService *service.AuthService) *AccountsHandler {
	return &AccountsHandler{authService: authService}
}

// Register POST /auth/register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var payload dto.RegisterPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.authService.Register(c.Context(), service.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromAccount(account)})
}

// Login POST /auth/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var payload dto.LoginPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if payload.Email == "" || payload.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	result, err := h.authService.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Account:   dto.FromAccount(result.Account),
	}})
}

// Me GET /me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.FromAccount(principal.Account)})
}

// ChangePassword POST /me/password.
func (h *AccountsHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var payload dto.ChangePasswordPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.ChangePassword(c.Context(), principal.Account.ID, payload.CurrentPassword, payload.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": true}})
}
