package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finora/internal/models"
	"finora/internal/services"
)

// RecurringHandler handles recurring entry templates
type RecurringHandler struct {
	recurringService services.RecurringServicer
	auditService     services.AuditServicer
}

// NewRecurringHandler creates a new RecurringHandler
func NewRecurringHandler(recurringService services.RecurringServicer, auditService services.AuditServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService, auditService: auditService}
}

// RecurringRequest represents the payload for a recurring entry template
type RecurringRequest struct {
	Kind             models.EntryKind           `json:"kind" binding:"required,entry_kind"`
	CategoryID       *string                    `json:"category_id" binding:"omitempty,uuid"`
	SubcategoryID    *string                    `json:"subcategory_id" binding:"omitempty,uuid"`
	Counterparty     string                     `json:"counterparty" binding:"required,max=200"`
	TotalAmount      decimal.Decimal            `json:"total_amount" binding:"required,gt=0" swaggertype:"string" example:"1500.00"`
	DueDay           int                        `json:"due_day" binding:"required,min=1,max=31"`
	InstallmentCount int                        `json:"installment_count" binding:"omitempty,min=1,max=360"`
	Frequency        models.RecurrenceFrequency `json:"frequency" binding:"required,recurrence_frequency"`
	StartDate        string                     `json:"start_date" binding:"omitempty,datetime=2006-01-02" example:"2026-01-01"`
	Note             string                     `json:"note" binding:"max=1000"`
}

func (r RecurringRequest) input() (services.RecurringInput, error) {
	start, err := parseDate("start_date", r.StartDate)
	if err != nil {
		return services.RecurringInput{}, err
	}
	count := r.InstallmentCount
	if count == 0 {
		count = 1
	}
	return services.RecurringInput{
		Kind:             r.Kind,
		CategoryID:       r.CategoryID,
		SubcategoryID:    r.SubcategoryID,
		Counterparty:     r.Counterparty,
		TotalAmount:      r.TotalAmount,
		DueDay:           r.DueDay,
		InstallmentCount: count,
		Frequency:        r.Frequency,
		StartDate:        start,
		Note:             r.Note,
	}, nil
}

// CreateRecurring creates a recurring entry template
// @Summary     Create a recurring entry
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RecurringRequest true "Template details"
// @Success     201 {object} models.RecurringEntry "Template created"
// @Failure     422 {object} ErrorResponse "Invalid input"
// @Router      /recurring [post]
func (h *RecurringHandler) CreateRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecurringRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	rec, err := h.recurringService.CreateRecurring(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// GetUserRecurring lists templates
// @Summary     List recurring entries
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.RecurringEntry "Templates, active first"
// @Router      /recurring [get]
func (h *RecurringHandler) GetUserRecurring(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	list, err := h.recurringService.GetUserRecurring(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetRecurringByID returns one template
// @Summary     Get a recurring entry
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} models.RecurringEntry "Template"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Router      /recurring/{id} [get]
func (h *RecurringHandler) GetRecurringByID(c *gin.Context) {
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

	rec, err := h.recurringService.GetRecurringByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// UpdateRecurring replaces a template's fields
// @Summary     Update a recurring entry
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string           true "Template ID"
// @Param       request body RecurringRequest true "Template details"
// @Success     200 {object} models.RecurringEntry "Template updated"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Router      /recurring/{id} [put]
func (h *RecurringHandler) UpdateRecurring(c *gin.Context) {
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

	var req RecurringRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	rec, err := h.recurringService.UpdateRecurring(userID, id, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// ToggleRecurring flips the active flag
// @Summary     Toggle a recurring entry
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} models.RecurringEntry "Template"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Router      /recurring/{id}/toggle [post]
func (h *RecurringHandler) ToggleRecurring(c *gin.Context) {
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

	rec, err := h.recurringService.ToggleRecurring(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// DeleteRecurring deletes a template; generated entries are kept
// @Summary     Delete a recurring entry
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} MessageResponse "Template deleted"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Router      /recurring/{id} [delete]
func (h *RecurringHandler) DeleteRecurring(c *gin.Context) {
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

	if err := h.recurringService.DeleteRecurring(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	respondMessage(c, "Recurring entry deleted successfully")
}

// GenerateRecurring creates an entry from a template
// @Summary     Generate an entry from a recurring template
// @Description Creates an entry whose installments follow the template's frequency
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     201 {object} models.FinancialEntry "Generated entry"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     422 {object} ErrorResponse "Template inactive"
// @Router      /recurring/{id}/generate [post]
func (h *RecurringHandler) GenerateRecurring(c *gin.Context) {
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

	entry, err := h.recurringService.Generate(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateEntry, "entry", entry.ID, c.ClientIP(),
		map[string]interface{}{"recurring_entry_id": id})

	c.JSON(http.StatusCreated, entry)
}
