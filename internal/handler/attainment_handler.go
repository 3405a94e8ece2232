package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/obe-portal-api/internal/attainment"
	"github.com/noah-isme/obe-portal-api/internal/models"
	appErrors "github.com/noah-isme/obe-portal-api/pkg/errors"
	"github.com/noah-isme/obe-portal-api/pkg/response"
)

type attainmentService interface {
	CourseAttainment(ctx context.Context, courseID string, viewer attainment.Viewer, scope string) (*models.CourseAttainmentReport, bool, error)
	StudentAttainment(ctx context.Context, courseID, studentID string, viewer attainment.Viewer, scope string) (*models.StudentAttainmentReport, bool, error)
	ProgramAttainment(ctx context.Context, programID string, viewer attainment.Viewer) (*models.ProgramAttainmentReport, bool, error)
}

// AttainmentHandler exposes course, student and program attainment endpoints.
type AttainmentHandler struct {
	service attainmentService
}

// NewAttainmentHandler constructs handler.
func NewAttainmentHandler(svc attainmentService) *AttainmentHandler {
	return &AttainmentHandler{service: svc}
}

// CourseAttainment godoc
// @Summary Course outcome attainment
// @Tags Attainment
// @Produce json
// @Param courseId path string true "Course ID"
// @Param scope query string false "Section ID or 'overall'"
// @Param batch query string false "Batch name for overall scope"
// @Success 200 {object} response.Envelope
// @Router /attainment/courses/{courseId} [get]
func (h *AttainmentHandler) CourseAttainment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	viewer := viewerFromClaims(claims, c.Query("batch"))
	report, cached, err := h.service.CourseAttainment(c.Request.Context(), c.Param("courseId"), viewer, c.Query("scope"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, map[string]interface{}{"cached": cached})
}

// StudentAttainment godoc
// @Summary Per-student outcome attainment within a course
// @Tags Attainment
// @Produce json
// @Param courseId path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Param scope query string false "Section ID or 'overall'"
// @Param batch query string false "Batch name for overall scope"
// @Success 200 {object} response.Envelope
// @Router /attainment/courses/{courseId}/students/{studentId} [get]
func (h *AttainmentHandler) StudentAttainment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	viewer := viewerFromClaims(claims, c.Query("batch"))
	report, cached, err := h.service.StudentAttainment(c.Request.Context(), c.Param("courseId"), c.Param("studentId"), viewer, c.Query("scope"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, map[string]interface{}{"cached": cached})
}

// ProgramAttainment godoc
// @Summary Program outcome linkage report
// @Tags Attainment
// @Produce json
// @Param programId path string true "Program ID"
// @Param batch query string true "Batch name"
// @Success 200 {object} response.Envelope
// @Router /attainment/programs/{programId} [get]
func (h *AttainmentHandler) ProgramAttainment(c *gin.Context) {
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

	viewer := viewerFromClaims(claims, batch)
	report, cached, err := h.service.ProgramAttainment(c.Request.Context(), c.Param("programId"), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, map[string]interface{}{"cached": cached})
}
