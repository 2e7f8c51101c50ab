package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finora/internal/models"
	"finora/internal/services"
)

// PaymentMethodHandler handles payment method requests
type PaymentMethodHandler struct {
	paymentMethodService services.PaymentMethodServicer
}

// NewPaymentMethodHandler creates a new PaymentMethodHandler
func NewPaymentMethodHandler(paymentMethodService services.PaymentMethodServicer) *PaymentMethodHandler {
	return &PaymentMethodHandler{paymentMethodService: paymentMethodService}
}

// PaymentMethodRequest represents the payload for creating or replacing a payment method
type PaymentMethodRequest struct {
	Name        string                   `json:"name" binding:"required,max=100"`
	Type        models.PaymentMethodType `json:"type" binding:"required,payment_method_type"`
	Bank        string                   `json:"bank" binding:"max=100"`
	CreditLimit *decimal.Decimal         `json:"credit_limit" swaggertype:"string" example:"5000.00"`
	IsActive    *bool                    `json:"is_active"`
	Note        string                   `json:"note" binding:"max=500"`
}

func (r PaymentMethodRequest) input() services.PaymentMethodInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return services.PaymentMethodInput{
		Name:        r.Name,
		Type:        r.Type,
		Bank:        r.Bank,
		CreditLimit: r.CreditLimit,
		IsActive:    active,
		Note:        r.Note,
	}
}

// CreatePaymentMethod handles the creation of a payment method
// @Summary     Create a payment method
// @Tags        payment-methods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PaymentMethodRequest true "Payment method details"
// @Success     201 {object} models.PaymentMethod "Payment method created"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Failure     422 {object} ErrorResponse "Invalid input"
// @Router      /payment-methods [post]
func (h *PaymentMethodHandler) CreatePaymentMethod(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PaymentMethodRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	pm, err := h.paymentMethodService.CreatePaymentMethod(userID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pm)
}

// GetPaymentMethods lists payment methods
// @Summary     List payment methods
// @Tags        payment-methods
// @Produce     json
// @Security    BearerAuth
// @Param       active query bool false "Filter by active flag"
// @Success     200 {array} models.PaymentMethod "Payment methods"
// @Router      /payment-methods [get]
func (h *PaymentMethodHandler) GetPaymentMethods(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	active, err := queryBool(c, "active")
	if err != nil {
		respondWithError(c, err)
		return
	}

	methods, err := h.paymentMethodService.GetPaymentMethods(userID, active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, methods)
}

// GetPaymentMethodByID returns one payment method
// @Summary     Get a payment method
// @Tags        payment-methods
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment method ID"
// @Success     200 {object} models.PaymentMethod "Payment method"
// @Failure     404 {object} ErrorResponse "Payment method not found"
// @Router      /payment-methods/{id} [get]
func (h *PaymentMethodHandler) GetPaymentMethodByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	pm, err := h.paymentMethodService.GetPaymentMethodByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pm)
}

// UpdatePaymentMethod replaces a payment method's fields
// @Summary     Update a payment method
// @Tags        payment-methods
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Payment method ID"
// @Param       request body PaymentMethodRequest true "Payment method details"
// @Success     200 {object} models.PaymentMethod "Payment method updated"
// @Failure     404 {object} ErrorResponse "Payment method not found"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /payment-methods/{id} [put]
func (h *PaymentMethodHandler) UpdatePaymentMethod(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PaymentMethodRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	pm, err := h.paymentMethodService.UpdatePaymentMethod(userID, id, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pm)
}

// TogglePaymentMethod flips the active flag
// @Summary     Toggle a payment method
// @Tags        payment-methods
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment method ID"
// @Success     200 {object} models.PaymentMethod "Payment method"
// @Failure     404 {object} ErrorResponse "Payment method not found"
// @Router      /payment-methods/{id}/toggle [post]
func (h *PaymentMethodHandler) TogglePaymentMethod(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	pm, err := h.paymentMethodService.TogglePaymentMethod(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pm)
}

// DeletePaymentMethod deletes an unused payment method
// @Summary     Delete a payment method
// @Tags        payment-methods
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Payment method ID"
// @Success     200 {object} MessageResponse "Payment method deleted"
// @Failure     404 {object} ErrorResponse "Payment method not found"
// @Failure     409 {object} ErrorResponse "Payment method in use"
// @Router      /payment-methods/{id} [delete]
func (h *PaymentMethodHandler) DeletePaymentMethod(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.paymentMethodService.DeletePaymentMethod(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	respondMessage(c, "Payment method deleted successfully")
}
