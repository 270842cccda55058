package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/samples/internal/model"
	"github.com/makeasinger/samples/internal/service"
	"github.com/makeasinger/samples/pkg/response"
)

// IngestJobs is the job API behind the ingest endpoints
type IngestJobs interface {
	StartIngest(ctx context.Context, req *model.StartIngestRequest) (*model.IngestJobResponse, error)
	GetStatus(ctx context.Context, jobID string) (*model.JobStatusResponse, error)
	GetResult(ctx context.Context, jobID string) (*model.BatchSummary, error)
	Cancel(ctx context.Context, jobID string) (*model.JobStatusResponse, error)
}

type IngestHandler struct {
	service   IngestJobs
	validator *validator.Validate
}

func NewIngestHandler(svc IngestJobs, v *validator.Validate) *IngestHandler {
	return &IngestHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/ingest/start
// @Summary      Start ingest job
// @Description  Queue ingestion of every audio file in a server-side directory
// @Tags         Ingest
// @Accept       json
// @Produce      json
// @Param        request body model.StartIngestRequest true "Ingest request"
// @Success      202 {object} model.IngestJobResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/ingest/start [post]
func (h *IngestHandler) Start(c *fiber.Ctx) error {
	var req model.StartIngestRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartIngest(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/ingest/status/:jobId
// @Summary      Get ingest job status
// @Tags         Ingest
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/ingest/status/{jobId} [get]
func (h *IngestHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/ingest/result/:jobId
// @Summary      Get ingest batch summary
// @Description  Counts plus one entry per failed file. Available once the job finished or was canceled.
// @Tags         Ingest
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.BatchSummary
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/ingest/result/{jobId} [get]
func (h *IngestHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, service.ErrJobNotCompleted):
			return response.ValidationError(c, "Job not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/ingest/cancel/:jobId
// @Summary      Cancel ingest job
// @Description  Files already in flight finish their current stage; the rest are reported as cancelled
// @Tags         Ingest
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/ingest/cancel/{jobId} [post]
func (h *IngestHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(c.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, service.ErrJobFinished):
			return response.ValidationError(c, "Job already completed", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
