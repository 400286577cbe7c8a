package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/champlabs/schoolsync/internal/models"
	"github.com/champlabs/schoolsync/internal/service"
	appErrors "github.com/champlabs/schoolsync/pkg/errors"
	"github.com/champlabs/schoolsync/pkg/response"
)

// PaymentHandler exposes fee payment endpoints.
type PaymentHandler struct {
	data *service.DataService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(data *service.DataService) *PaymentHandler {
	return &PaymentHandler{data: data}
}

// List godoc
// @Summary List fee payments
// @Tags Payments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter := models.FeePaymentFilter{StudentID: c.Query("studentId")}
	payments, err := h.data.ListFeePayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments)
}

// Get godoc
// @Summary Get one fee payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.data.GetFeePayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment)
}

// Create godoc
// @Summary Record a fee payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.CreateFeePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.CreateFeePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	payment, err := h.data.CreateFeePayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Update godoc
// @Summary Correct a fee payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.UpdateFeePaymentRequest true "Partial payment payload"
// @Success 200 {object} response.Envelope
// @Router /payments/{id} [patch]
func (h *PaymentHandler) Update(c *gin.Context) {
	var req service.UpdateFeePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	payment, err := h.data.UpdateFeePayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment)
}

// Delete godoc
// @Summary Delete a fee payment
// @Tags Payments
// @Param id path string true "Payment ID"
// @Success 204
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	if err := h.data.DeleteFeePayment(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
