package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finora/internal/errors"
	"finora/internal/logger"
	"finora/internal/models"
	"finora/internal/services"
)

const defaultPaymentsLimit = 12

// BillingHandler handles subscription and payment requests
type BillingHandler struct {
	subscriptionService services.SubscriptionServicer
	userService         services.UserServicer
	auditService        services.AuditServicer
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(subscriptionService services.SubscriptionServicer, userService services.UserServicer, auditService services.AuditServicer) *BillingHandler {
	return &BillingHandler{
		subscriptionService: subscriptionService,
		userService:         userService,
		auditService:        auditService,
	}
}

// ActivateRequest represents the subscription activation payload
type ActivateRequest struct {
	MonthlyAmount *decimal.Decimal `json:"monthly_amount" swaggertype:"string" example:"29.90"`
}

// RecordPaymentRequest represents a subscription payment
type RecordPaymentRequest struct {
	Amount                decimal.Decimal      `json:"amount" binding:"required,gt=0" swaggertype:"string" example:"29.90"`
	Reference             string               `json:"reference" binding:"omitempty,reference_month" example:"2026-03"`
	Method                models.BillingMethod `json:"method" binding:"required,billing_method"`
	ExternalTransactionID *string              `json:"external_transaction_id" binding:"omitempty,max=128"`
}

// WebhookPaymentRequest represents a payment confirmed by the provider
type WebhookPaymentRequest struct {
	UserID                string               `json:"user_id" binding:"required,uuid"`
	Amount                decimal.Decimal      `json:"amount" binding:"required,gt=0" swaggertype:"string" example:"29.90"`
	Reference             string               `json:"reference" binding:"omitempty,reference_month" example:"2026-03"`
	Method                models.BillingMethod `json:"method" binding:"required,billing_method"`
	ExternalTransactionID string               `json:"external_transaction_id" binding:"required,max=128"`
}

// PaymentResponse is a recorded payment with the resulting subscription
type PaymentResponse struct {
	Payment      *models.Payment      `json:"payment,omitempty"`
	Subscription *models.Subscription `json:"subscription"`
	Duplicate    bool                 `json:"duplicate,omitempty"`
}

// GetSubscription returns the tenant's subscription
// @Summary     Get subscription
// @Description Get the subscription, starting a trial on first access
// @Tags        billing
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Subscription "Subscription"
// @Router      /billing/subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sub, err := h.subscriptionService.Get(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Activate starts or reactivates the subscription
// @Summary     Activate subscription
// @Tags        billing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ActivateRequest false "Optional monthly amount"
// @Success     200 {object} models.Subscription "Active subscription"
// @Failure     422 {object} ErrorResponse "Invalid amount"
// @Router      /billing/subscription/activate [post]
func (h *BillingHandler) Activate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ActivateRequest
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			respondWithError(c, err)
			return
		}
	}

	sub, err := h.subscriptionService.Activate(userID, req.MonthlyAmount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditActivateSubscription, "subscription", sub.ID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, sub)
}

// Cancel cancels the subscription
// @Summary     Cancel subscription
// @Tags        billing
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Subscription "Cancelled subscription"
// @Router      /billing/subscription/cancel [post]
func (h *BillingHandler) Cancel(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sub, err := h.subscriptionService.Cancel(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCancelSubscription, "subscription", sub.ID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, sub)
}

// RecordPayment records a subscription payment
// @Summary     Record payment
// @Description Record a confirmed payment and advance the next due date
// @Tags        billing
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RecordPaymentRequest true "Payment"
// @Success     201 {object} PaymentResponse "Payment recorded"
// @Failure     409 {object} ErrorResponse "Subscription cancelled or duplicate payment"
// @Failure     422 {object} ErrorResponse "Invalid input"
// @Router      /billing/payments [post]
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecordPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	payment, sub, err := h.subscriptionService.RecordPayment(userID, services.PaymentInput{
		Amount:                req.Amount,
		Reference:             req.Reference,
		Method:                req.Method,
		ExternalTransactionID: req.ExternalTransactionID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditRecordPayment, "payment", payment.ID, c.ClientIP(),
		map[string]interface{}{"amount": payment.Amount.StringFixed(2), "reference": payment.Reference})
	c.JSON(http.StatusCreated, PaymentResponse{Payment: payment, Subscription: sub})
}

// ListPayments lists the latest payments
// @Summary     List payments
// @Tags        billing
// @Produce     json
// @Security    BearerAuth
// @Param       limit query int false "Number of payments (1-120, default 12)"
// @Success     200 {array} models.Payment "Payments, newest first"
// @Failure     422 {object} ErrorResponse "Invalid limit"
// @Router      /billing/payments [get]
func (h *BillingHandler) ListPayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	limit := defaultPaymentsLimit
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid limit"))
			return
		}
	}

	payments, err := h.subscriptionService.ListPayments(userID, limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// Webhook records a payment confirmed by the payment provider
// @Summary     Payment provider webhook
// @Description Record a confirmed payment; repeated external transaction IDs are acknowledged without a second payment
// @Tags        billing
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body WebhookPaymentRequest true "Confirmed payment"
// @Success     200 {object} PaymentResponse "Already recorded"
// @Success     201 {object} PaymentResponse "Payment recorded"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /billing/webhook [post]
func (h *BillingHandler) Webhook(c *gin.Context) {
	var req WebhookPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.userService.GetUser(req.UserID); err != nil {
		respondWithError(c, err)
		return
	}

	externalID := req.ExternalTransactionID
	payment, sub, err := h.subscriptionService.RecordPayment(req.UserID, services.PaymentInput{
		Amount:                req.Amount,
		Reference:             req.Reference,
		Method:                req.Method,
		ExternalTransactionID: &externalID,
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrDuplicatePayment.Code {
			logger.Get().Infow("Duplicate webhook payment acknowledged",
				"user_id", req.UserID,
				"external_transaction_id", externalID,
			)
			current, getErr := h.subscriptionService.Get(req.UserID)
			if getErr != nil {
				respondWithError(c, getErr)
				return
			}
			c.JSON(http.StatusOK, PaymentResponse{Subscription: current, Duplicate: true})
			return
		}
		respondWithError(c, err)
		return
	}

	h.auditService.Log(req.UserID, services.AuditRecordPayment, "payment", payment.ID, c.ClientIP(),
		map[string]interface{}{"source": "webhook", "external_transaction_id": externalID})
	c.JSON(http.StatusCreated, PaymentResponse{Payment: payment, Subscription: sub})
}
