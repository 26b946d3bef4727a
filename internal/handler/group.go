package handler

import (
	"errors"

	"github.com/clipflow/api/internal/middleware"
	"github.com/clipflow/api/internal/model"
	"github.com/clipflow/api/internal/service"
	"github.com/clipflow/api/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type GroupHandler struct {
	service   *service.GroupService
	validator *validator.Validate
}

func NewGroupHandler(svc *service.GroupService, v *validator.Validate) *GroupHandler {
	return &GroupHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/groups
func (h *GroupHandler) Create(c *fiber.Ctx) error {
	var req model.CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", err.Error())
	}

	userID := middleware.GetUserID(c)
	group, err := h.service.CreateGroup(c.Context(), userID, req.Name)
	if err != nil {
		return response.ServiceError(c, "Failed to create group")
	}

	return response.Created(c, group)
}

// PutSession handles PUT /api/groups/:id/sessions/:platform
func (h *GroupHandler) PutSession(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.ValidationError(c, "Invalid group id", nil)
	}

	platform := model.Platform(c.Params("platform"))
	if !platform.IsValid() {
		return response.ValidationError(c, "Unknown platform", fiber.Map{"platform": platform})
	}

	var req model.PutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", err.Error())
	}

	userID := middleware.GetUserID(c)
	data := model.SessionData{Token: req.Token, Username: req.Username}
	if err := h.service.PutSession(c.Context(), userID, int64(id), platform, data); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Group not found")
		}
		return response.ServiceError(c, "Failed to store session")
	}

	return response.NoContent(c)
}
