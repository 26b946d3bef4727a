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

type JobHandler struct {
	service   *service.UploadService
	validator *validator.Validate
}

func NewJobHandler(svc *service.UploadService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/jobs
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req model.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", err.Error())
	}

	userID := middleware.GetUserID(c)
	job, err := h.service.CreateJob(c.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Group not found")
		}
		return response.ServiceError(c, "Failed to create job")
	}

	return response.Created(c, model.NewJobResponse(job))
}

// List handles GET /api/jobs
func (h *JobHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	jobs, err := h.service.ListJobs(c.Context(), userID)
	if err != nil {
		return response.ServiceError(c, "Failed to list jobs")
	}

	out := make([]*model.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, model.NewJobResponse(job))
	}
	return response.OK(c, fiber.Map{"jobs": out})
}

// Get handles GET /api/jobs/:id
func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.ValidationError(c, "Invalid job id", nil)
	}

	userID := middleware.GetUserID(c)
	job, err := h.service.GetJob(c.Context(), int64(id), userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, "Failed to get job")
	}

	return response.OK(c, model.NewJobResponse(job))
}

// Cancel handles POST /api/jobs/:id/cancel
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.ValidationError(c, "Invalid job id", nil)
	}

	userID := middleware.GetUserID(c)
	if err := h.service.CancelJob(c.Context(), int64(id), userID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, service.ErrNotCancelable) {
			return response.Conflict(c, "Job can no longer be canceled")
		}
		return response.ServiceError(c, "Failed to cancel job")
	}

	return response.NoContent(c)
}
