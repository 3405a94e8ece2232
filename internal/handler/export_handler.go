package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/obe-portal-api/internal/attainment"
	"github.com/noah-isme/obe-portal-api/internal/models"
	appErrors "github.com/noah-isme/obe-portal-api/pkg/errors"
	"github.com/noah-isme/obe-portal-api/pkg/response"
)

type exportRenderer interface {
	RenderCourse(ctx context.Context, courseID string, viewer attainment.Viewer, scope string, format models.ReportFormat) ([]byte, string, error)
	RenderProgram(ctx context.Context, programID string, viewer attainment.Viewer, format models.ReportFormat) ([]byte, string, error)
}

// ExportHandler serves synchronous report downloads rendered per request.
type ExportHandler struct {
	exports exportRenderer
}

// NewExportHandler constructs handler.
func NewExportHandler(exports exportRenderer) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// ExportCourse godoc
// @Summary Download a course attainment report
// @Tags Reports
// @Produce octet-stream
// @Param courseId path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Param scope query string false "Section ID or 'overall'"
// @Param batch query string false "Batch name for overall scope"
// @Success 200 {file} file
// @Router /reports/courses/{courseId} [get]
func (h *ExportHandler) ExportCourse(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := models.ReportFormat(c.DefaultQuery("format", string(models.ReportFormatCSV)))
	viewer := viewerFromClaims(claims, c.Query("batch"))
	payload, filename, err := h.exports.RenderCourse(c.Request.Context(), c.Param("courseId"), viewer, c.Query("scope"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	serveExport(c, payload, filename, format)
}

// ExportProgram godoc
// @Summary Download a program attainment report
// @Tags Reports
// @Produce octet-stream
// @Param programId path string true "Program ID"
// @Param format query string false "csv or pdf" default(csv)
// @Param batch query string true "Batch name"
// @Success 200 {file} file
// @Router /reports/programs/{programId} [get]
func (h *ExportHandler) ExportProgram(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	batch := c.Query("batch")
	if batch == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "batch required"))
		return
	}

	format := models.ReportFormat(c.DefaultQuery("format", string(models.ReportFormatCSV)))
	viewer := viewerFromClaims(claims, batch)
	payload, filename, err := h.exports.RenderProgram(c.Request.Context(), c.Param("programId"), viewer, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	serveExport(c, payload, filename, format)
}

func serveExport(c *gin.Context, payload []byte, filename string, format models.ReportFormat) {
	contentType := "text/csv"
	if format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
