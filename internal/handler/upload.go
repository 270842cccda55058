package handler

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/samples/internal/ingest"
	"github.com/makeasinger/samples/internal/model"
	"github.com/makeasinger/samples/pkg/response"
)

const MaxUploadSize = 50 * 1024 * 1024 // 50MB

// FileIngester runs one file through the pipeline
type FileIngester interface {
	IngestFile(ctx context.Context, index int, in model.RawAudioInput, opts ingest.BatchOptions) model.IngestionResult
}

type UploadHandler struct {
	pipeline   FileIngester
	extensions map[string]bool
}

func NewUploadHandler(p FileIngester, extensions []string) *UploadHandler {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &UploadHandler{
		pipeline:   p,
		extensions: allowed,
	}
}

// Sample handles POST /api/ingest/upload
// @Summary      Ingest one uploaded sample
// @Description  Run a single uploaded file through the pipeline and wait for the outcome
// @Tags         Ingest
// @Accept       multipart/form-data
// @Produce      json
// @Param        genre  formData string false "Genre override"
// @Param        artist formData string false "Artist"
// @Param        file   formData file   true  "Audio file (max 50MB)"
// @Success      201 {object} model.IngestionResult
// @Failure      400 {object} response.ErrorResponse
// @Failure      422 {object} model.IngestionResult
// @Router       /api/ingest/upload [post]
func (h *UploadHandler) Sample(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > MaxUploadSize {
		return response.ValidationError(c, "File size exceeds 50MB limit", map[string]interface{}{
			"maxSize":  MaxUploadSize,
			"fileSize": file.Size,
		})
	}
	if file.Size == 0 {
		return response.ValidationError(c, "File is empty", nil)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !h.extensions[ext] {
		return response.ValidationError(c, "Unsupported file type", map[string]interface{}{
			"extension": ext,
		})
	}

	in := model.RawAudioInput{
		Filename: filepath.Base(file.Filename),
		Size:     file.Size,
		Open: func() (io.ReadCloser, error) {
			return file.Open()
		},
	}

	result := h.pipeline.IngestFile(c.Context(), 0, in, ingest.BatchOptions{
		Genre:  c.FormValue("genre"),
		Artist: c.FormValue("artist"),
	})
	if !result.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}

	return response.Created(c, result)
}
