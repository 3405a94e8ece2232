package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/obe-portal-api/internal/models"
	"github.com/noah-isme/obe-portal-api/internal/service"
	appErrors "github.com/noah-isme/obe-portal-api/pkg/errors"
	"github.com/noah-isme/obe-portal-api/pkg/response"
)

type settingsService interface {
	Get(ctx context.Context) (*models.SystemSettings, error)
	Update(ctx context.Context, req service.UpdateSettingsRequest) (*models.SystemSettings, error)
}

// SettingsHandler exposes system-wide default threshold management.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(svc settingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// GetSettings godoc
// @Summary Get system settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// UpdateSettings godoc
// @Summary Update system settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body service.UpdateSettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req service.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}

	settings, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
