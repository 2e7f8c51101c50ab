package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finora/internal/services"
)

// InstallmentHandler handles installment requests
type InstallmentHandler struct {
	installmentService services.InstallmentServicer
	auditService       services.AuditServicer
}

// NewInstallmentHandler creates a new InstallmentHandler
func NewInstallmentHandler(installmentService services.InstallmentServicer, auditService services.AuditServicer) *InstallmentHandler {
	return &InstallmentHandler{installmentService: installmentService, auditService: auditService}
}

// PayInstallmentRequest marks an installment paid or unpaid
type PayInstallmentRequest struct {
	Paid            *bool            `json:"paid" binding:"required"`
	PaidAt          string           `json:"paid_at" binding:"omitempty,datetime=2006-01-02" example:"2026-03-10"`
	PaidAmount      *decimal.Decimal `json:"paid_amount" swaggertype:"string" example:"33.33"`
	PaymentMethodID *string          `json:"payment_method_id" binding:"omitempty,uuid"`
	PaymentNote     *string          `json:"payment_note" binding:"omitempty,max=500"`
}

// RescheduleRequest moves an unpaid installment and/or changes its amount
type RescheduleRequest struct {
	DueDate string          `json:"due_date" binding:"required,datetime=2006-01-02" example:"2026-04-10"`
	Amount  decimal.Decimal `json:"amount" binding:"required,gt=0" swaggertype:"string" example:"45.00"`
}

// GetUserInstallments lists installments
// @Summary     List installments
// @Tags        installments
// @Produce     json
// @Security    BearerAuth
// @Param       paid      query bool   false "Filter by paid flag"
// @Param       from      query string false "Due date from (YYYY-MM-DD or RFC3339)"
// @Param       to        query string false "Due date to (YYYY-MM-DD or RFC3339)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Installment] "Paginated installments by due date"
// @Router      /installments [get]
func (h *InstallmentHandler) GetUserInstallments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var filter services.InstallmentFilter
	if filter.Paid, err = queryBool(c, "paid"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.FromDate, err = queryTime(c, "from"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.ToDate, err = queryTime(c, "to"); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.installmentService.GetUserInstallments(userID, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetInstallmentByID returns one installment
// @Summary     Get an installment
// @Tags        installments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Installment ID"
// @Success     200 {object} models.Installment "Installment"
// @Failure     404 {object} ErrorResponse "Installment not found"
// @Router      /installments/{id} [get]
func (h *InstallmentHandler) GetInstallmentByID(c *gin.Context) {
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

	inst, err := h.installmentService.GetInstallmentByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, inst)
}

// PayInstallment marks an installment paid or unpaid
// @Summary     Pay or unpay an installment
// @Description Paid defaults paid_at to today and paid_amount to the nominal amount; unpaid clears all payment fields
// @Tags        installments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Installment ID"
// @Param       request body PayInstallmentRequest true "Payment details"
// @Success     200 {object} models.Installment "Installment"
// @Failure     404 {object} ErrorResponse "Installment or payment method not found"
// @Failure     422 {object} ErrorResponse "Invalid input or inactive payment method"
// @Router      /installments/{id}/pay [patch]
func (h *InstallmentHandler) PayInstallment(c *gin.Context) {
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

	var req PayInstallmentRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	upd := services.PaymentUpdate{
		Paid:            *req.Paid,
		PaidAmount:      req.PaidAmount,
		PaymentMethodID: req.PaymentMethodID,
		PaymentNote:     req.PaymentNote,
	}
	if req.PaidAt != "" {
		paidAt, err := parseDate("paid_at", req.PaidAt)
		if err != nil {
			respondWithError(c, err)
			return
		}
		upd.PaidAt = &paidAt
	}

	inst, err := h.installmentService.SetPaid(userID, id, upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	action := services.AuditUnpayInstallment
	var changes map[string]interface{}
	if inst.Paid {
		action = services.AuditPayInstallment
		changes = map[string]interface{}{"paid_amount": inst.PaidAmount.Decimal.StringFixed(2)}
	}
	h.auditService.Log(userID, action, "installment", id, c.ClientIP(), changes)

	c.JSON(http.StatusOK, inst)
}

// RescheduleInstallment changes an unpaid installment's due date and amount
// @Summary     Reschedule an installment
// @Description The entry total and average are recomputed so installments keep summing to the total
// @Tags        installments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Installment ID"
// @Param       request body RescheduleRequest true "New due date and amount"
// @Success     200 {object} models.Installment "Installment"
// @Failure     404 {object} ErrorResponse "Installment not found"
// @Failure     409 {object} ErrorResponse "Installment already paid"
// @Router      /installments/{id} [put]
func (h *InstallmentHandler) RescheduleInstallment(c *gin.Context) {
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

	var req RescheduleRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	inst, err := h.installmentService.Reschedule(userID, id, due, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditRescheduleInstallment, "installment", id, c.ClientIP(),
		map[string]interface{}{"due_date": req.DueDate, "amount": inst.Amount.StringFixed(2)})

	c.JSON(http.StatusOK, inst)
}
