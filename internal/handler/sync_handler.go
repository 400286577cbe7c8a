package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/champlabs/schoolsync/internal/models"
	"github.com/champlabs/schoolsync/internal/service"
	"github.com/champlabs/schoolsync/internal/syncengine"
	"github.com/champlabs/schoolsync/pkg/response"
)

// SyncHandler exposes sync control and status endpoints.
type SyncHandler struct {
	data   *service.DataService
	engine *syncengine.Engine
}

// NewSyncHandler constructs SyncHandler.
func NewSyncHandler(data *service.DataService, engine *syncengine.Engine) *SyncHandler {
	return &SyncHandler{data: data, engine: engine}
}

// Status godoc
// @Summary Current sync status
// @Tags Sync
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	status := h.engine.GetStatus(c.Request.Context())
	response.JSON(c, http.StatusOK, status, map[string]interface{}{"state": h.engine.State()})
}

// SyncNow godoc
// @Summary Trigger an immediate sync pass
// @Tags Sync
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /sync [post]
func (h *SyncHandler) SyncNow(c *gin.Context) {
	if err := h.data.SyncAllData(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, h.engine.GetStatus(c.Request.Context()))
}

// Download godoc
// @Summary Pull all remote data into the local cache
// @Tags Sync
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /sync/download [post]
func (h *SyncHandler) Download(c *gin.Context) {
	if err := h.data.DownloadAllData(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, h.engine.GetStatus(c.Request.Context()))
}

// Events streams status snapshots as server-sent events. The subscription
// lasts until the client disconnects.
func (h *SyncHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	updates := make(chan models.SyncStatus, 16)
	unsubscribe := h.engine.AddListener(func(status models.SyncStatus) {
		select {
		case updates <- status:
		default:
		}
	})
	defer unsubscribe()

	// Initial snapshot so clients render without waiting for a transition.
	c.SSEvent("status", h.engine.GetStatus(c.Request.Context()))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case status := <-updates:
			c.SSEvent("status", status)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
