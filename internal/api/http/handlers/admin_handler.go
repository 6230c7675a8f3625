package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/service"
)

// AdminHandler serves super admin diagnostics.
type AdminHandler struct {
	requests *service.RequestService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(requests *service.RequestService) *AdminHandler {
	return &AdminHandler{requests: requests}
}

// ReplayRequest GET /admin/requests/:id/replay. Rebuilds the snapshot from
// the event log so an operator can compare it with the stored projection.
func (h *AdminHandler) ReplayRequest(c *fiber.Ctx) error {
	replayed, err := h.requests.Replay(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromRequestDetail(replayed, nil, nil)})
}
