package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/service"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// CaretakerHandler serves the assignee-side work endpoints.
type CaretakerHandler struct {
	requests *service.RequestService
}

// NewCaretakerHandler constructs the handler.
func NewCaretakerHandler(requests *service.RequestService) *CaretakerHandler {
	return &CaretakerHandler{requests: requests}
}

// Accept POST /requests/:id/accept.
func (h *CaretakerHandler) Accept(c *fiber.Ctx) error {
	return h.transition(c, lifecycle.Transition{Type: lifecycle.TransitionAccept})
}

// Decline POST /requests/:id/decline.
func (h *CaretakerHandler) Decline(c *fiber.Ctx) error {
	var payload dto.ReasonPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, lifecycle.Transition{
		Type:   lifecycle.TransitionDecline,
		Reason: payload.Reason,
	})
}

// CompleteWork POST /requests/:id/complete.
func (h *CaretakerHandler) CompleteWork(c *fiber.Ctx) error {
	var payload dto.CompleteWorkPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(payload.Notes) == "" {
		return apperrors.NewValidationError("notes required", nil)
	}
	t := lifecycle.Transition{
		Type:            lifecycle.TransitionCompleteWork,
		CompletionNotes: payload.Notes,
		MediaKeys:       payload.MediaKeys,
	}
	if payload.Cost != nil {
		cost, err := payload.Cost.ToDomain()
		if err != nil {
			return apperrors.NewValidationError("invalid cost amount", map[string]any{"error": err.Error()})
		}
		t.Cost = cost
	}
	return h.transition(c, t)
}

func (h *CaretakerHandler) transition(c *fiber.Ctx, t lifecycle.Transition) error {
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
