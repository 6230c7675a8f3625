package handlers

import (
	"strconv"
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

// RequestsHandler serves the request endpoints shared by all roles plus the
// tenant-only operations.
type RequestsHandler struct {
	requests   *service.RequestService
	categories repository.CategoryRepository
}

// NewRequestsHandler constructs the handler.
func NewRequestsHandler(requests *service.RequestService, categories repository.CategoryRepository) *RequestsHandler {
	return &RequestsHandler{requests: requests, categories: categories}
}

// CreateRequest POST /requests.
func (h *RequestsHandler) CreateRequest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var payload dto.CreateRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if payload.PropertyID == "" || payload.CategoryID == "" {
		return apperrors.NewValidationError("property_id and category_id required", nil)
	}

	req, err := h.requests.CreateRequest(c.Context(), principal.Account.ID, service.CreateInput{
		PropertyID:  payload.PropertyID,
		CategoryID:  payload.CategoryID,
		Title:       payload.Title,
		Description: payload.Description,
		Priority:    payload.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromRequestSummary(req)})
}

// ListRequests GET /requests. The result set is scoped to the caller's role.
func (h *RequestsHandler) ListRequests(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requests, err := h.requests.ListForActor(c.Context(), principal.Actor(), parseListQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, dto.FromRequestSummary(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRequest GET /requests/:id.
func (h *RequestsHandler) GetRequest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.requests.GetDetail(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromRequestDetail(detail.Request, detail.Deadlines, detail.Actions)})
}

// GetHistory GET /requests/:id/history.
func (h *RequestsHandler) GetHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	log, err := h.requests.History(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.EventResponse, 0, len(log))
	for _, event := range log {
		items = append(items, dto.FromEvent(event))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CloseRequest POST /requests/:id/close.
func (h *RequestsHandler) CloseRequest(c *fiber.Ctx) error {
	return h.transition(c, lifecycle.Transition{Type: lifecycle.TransitionClose})
}

// ReopenRequest POST /requests/:id/reopen.
func (h *RequestsHandler) ReopenRequest(c *fiber.Ctx) error {
	var payload dto.ReasonPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, lifecycle.Transition{
		Type:   lifecycle.TransitionReopen,
		Reason: payload.Reason,
	})
}

// ReviewCompletion POST /requests/:id/review. Both the tenant and the
// landlord side record their verdict here; the engine routes the review to
// the proper slot.
func (h *RequestsHandler) ReviewCompletion(c *fiber.Ctx) error {
	var payload dto.ReviewCompletionPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.transition(c, lifecycle.Transition{
		Type:     lifecycle.TransitionReviewCompletion,
		Approve:  payload.Approved,
		Rating:   payload.Rating,
		Feedback: payload.Feedback,
		Reason:   payload.Reason,
	})
}

// ListCategories GET /categories.
func (h *RequestsHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, dto.FromCategory(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *RequestsHandler) transition(c *fiber.Ctx, t lifecycle.Transition) error {
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

func parseListQuery(c *fiber.Ctx) service.ListFilter {
	filter := service.ListFilter{
		Limit:  parseIntQuery(c, "page_size", 20),
		Offset: 0,
	}
	if page := parseIntQuery(c, "page", 1); page > 1 {
		filter.Offset = (page - 1) * filter.Limit
	}
	for _, raw := range splitQuery(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.RequestStatus(strings.ToUpper(raw)))
	}
	for _, raw := range splitQuery(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.Priority(strings.ToUpper(raw)))
	}
	if propertyID := c.Query("property_id"); propertyID != "" {
		filter.PropertyID = &propertyID
	}
	return filter
}

func parseIntQuery(c *fiber.Ctx, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
