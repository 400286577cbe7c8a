package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/champlabs/schoolsync/internal/service"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
	"github.com/champlabs/schoolsync/pkg/response"
)

// ConfigHandler exposes the runtime data service configuration.
type ConfigHandler struct {
	data *service.DataService
}

// NewConfigHandler constructs ConfigHandler.
func NewConfigHandler(data *service.DataService) *ConfigHandler {
	return &ConfigHandler{data: data}
}

type updateConfigRequest struct {
	UseOffline *bool `json:"use_offline"`
	AutoSync   *bool `json:"auto_sync"`
}

// Get godoc
// @Summary Current data service configuration
// @Tags Config
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /config [get]
func (h *ConfigHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.data.GetConfig())
}

// Update godoc
// @Summary Update data service configuration
// @Tags Config
// @Accept json
// @Produce json
// @Param payload body updateConfigRequest true "Partial config"
// @Success 200 {object} response.Envelope
// @Router /config [patch]
func (h *ConfigHandler) Update(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	cfg := h.data.SetConfig(req.UseOffline, req.AutoSync)
	response.JSON(c, http.StatusOK, cfg)
}
