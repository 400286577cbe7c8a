package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/champlabs/schoolsync/internal/models"
	"github.com/champlabs/schoolsync/internal/service"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
	"github.com/champlabs/schoolsync/pkg/response"
)

// AttendanceHandler exposes attendance endpoints.
type AttendanceHandler struct {
	data *service.DataService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(data *service.DataService) *AttendanceHandler {
	return &AttendanceHandler{data: data}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{StudentID: c.Query("studentId")}
	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
			return
		}
		filter.Date = &date
	}
	records, err := h.data.ListAttendanceRecords(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// Get godoc
// @Summary Get one attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.data.GetAttendanceRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Create godoc
// @Summary Mark attendance
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CreateAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Create(c *gin.Context) {
	var req service.CreateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	record, err := h.data.CreateAttendanceRecord(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Correct an attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.UpdateAttendanceRequest true "Partial attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [patch]
func (h *AttendanceHandler) Update(c *gin.Context) {
	var req service.UpdateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	record, err := h.data.UpdateAttendanceRecord(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Param id path string true "Record ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.data.DeleteAttendanceRecord(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
