package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skillsphere/skillsphere-api/internal/models"
	"github.com/skillsphere/skillsphere-api/internal/service"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
	"github.com/skillsphere/skillsphere-api/pkg/response"
)

// ExportHandler streams rendered report files.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// ReviewQueue godoc
// @Summary Export the review queue
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/review-queue [get]
func (h *ExportHandler) ReviewQueue(c *gin.Context) {
	h.serve(c, h.exports.ReviewQueue)
}

// InstructorCourses godoc
// @Summary Export own course report
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/courses [get]
func (h *ExportHandler) InstructorCourses(c *gin.Context) {
	h.serve(c, h.exports.InstructorCourses)
}

type exportFunc func(ctx context.Context, actor models.Actor, format service.ExportFormat) (*service.ExportFile, error)

func (h *ExportHandler) serve(c *gin.Context, export exportFunc) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	file, err := export(c.Request.Context(), claims.Actor(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
