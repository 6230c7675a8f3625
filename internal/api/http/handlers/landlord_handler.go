package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/service"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// LandlordHandler serves the landlord-side review and assignment endpoints
// plus property management.
type LandlordHandler struct {
	requests   *service.RequestService
	properties repository.PropertyRepository
	accounts   repository.AccountRepository
}

// NewLandlordHandler constructs the handler.
func NewLandlordHandler(requests *service.RequestService, properties repository.PropertyRepository, accounts repository.AccountRepository) *LandlordHandler {
	return &LandlordHandler{requests: requests, properties: properties, accounts: accounts}
}

// StartReview POST /requests/:id/start-review.
func (h *LandlordHandler) StartReview(c *fiber.Ctx) error {
	return h.transition(c, lifecycle.Transition{Type: lifecycle.TransitionStartReview})
}

// Approve POST /requests/:id/approve.
func (h *LandlordHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, lifecycle.Transition{Type: lifecycle.TransitionApprove})
}

// Reject POST /requests/:id/reject.
func (h *LandlordHandler) Reject(c *fiber.Ctx) error {
	var payload dto.ReasonPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, lifecycle.Transition{
		Type:   lifecycle.TransitionReject,
		Reason: payload.Reason,
	})
}

// Assign POST /requests/:id/assign.
func (h *LandlordHandler) Assign(c *fiber.Ctx) error {
	var payload dto.AssignPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(payload.AssigneeID) == "" {
		return apperrors.NewValidationError("assignee_id required", nil)
	}
	return h.transition(c, lifecycle.Transition{
		Type:       lifecycle.TransitionAssign,
		AssigneeID: payload.AssigneeID,
	})
}

// CreateProperty POST /properties.
func (h *LandlordHandler) CreateProperty(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var payload struct {
		Address   string `json:"address"`
		UnitLabel string `json:"unit_label"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(payload.Address) == "" {
		return apperrors.NewValidationError("address required", nil)
	}

	property := &domain.Property{
		LandlordID: principal.Account.ID,
		Address:    strings.TrimSpace(payload.Address),
		UnitLabel:  strings.TrimSpace(payload.UnitLabel),
		Active:     true,
	}
	if err := h.properties.Create(c.Context(), property); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromProperty(property)})
}

// ListProperties GET /properties.
func (h *LandlordHandler) ListProperties(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit := parseIntQuery(c, "page_size", 50)
	offset := 0
	if page := parseIntQuery(c, "page", 1); page > 1 {
		offset = (page - 1) * limit
	}
	properties, err := h.properties.ListByLandlord(c.Context(), principal.Account.ID, limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.PropertyResponse, 0, len(properties))
	for i := range properties {
		items = append(items, dto.FromProperty(&properties[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListCaretakers GET /caretakers. Landlords use it to pick an assignee.
func (h *LandlordHandler) ListCaretakers(c *fiber.Ctx) error {
	limit := parseIntQuery(c, "page_size", 50)
	offset := 0
	if page := parseIntQuery(c, "page", 1); page > 1 {
		offset = (page - 1) * limit
	}
	caretakers, err := h.accounts.ListByRole(c.Context(), domain.RoleCaretaker, limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.AccountResponse, 0, len(caretakers))
	for i := range caretakers {
		items = append(items, dto.FromAccount(&caretakers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *LandlordHandler) transition(c *fiber.Ctx, t lifecycle.Transition) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	req, err := h.requests.Transition(c.Context(), principal.Actor(), c.Params("id"), t)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromRequestSummary(req)})
}
