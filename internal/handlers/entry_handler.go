package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finora/internal/models"
	"finora/internal/services"
)

// EntryHandler handles financial entry requests
type EntryHandler struct {
	entryService services.EntryServicer
	auditService services.AuditServicer
}

// NewEntryHandler creates a new EntryHandler
func NewEntryHandler(entryService services.EntryServicer, auditService services.AuditServicer) *EntryHandler {
	return &EntryHandler{entryService: entryService, auditService: auditService}
}

// EntryRequest represents the payload for creating or regenerating an entry
type EntryRequest struct {
	Kind             models.EntryKind `json:"kind" binding:"required,entry_kind"`
	EntryDate        string           `json:"entry_date" binding:"omitempty,datetime=2006-01-02" example:"2026-03-01"`
	CategoryID       *string          `json:"category_id" binding:"omitempty,uuid"`
	SubcategoryID    *string          `json:"subcategory_id" binding:"omitempty,uuid"`
	Counterparty     string           `json:"counterparty" binding:"required,max=200"`
	TotalAmount      decimal.Decimal  `json:"total_amount" binding:"required,gt=0" swaggertype:"string" example:"100.00"`
	FirstDueDate     string           `json:"first_due_date" binding:"required,datetime=2006-01-02" example:"2026-03-10"`
	InstallmentCount int              `json:"installment_count" binding:"required,min=1,max=360"`
	Note             string           `json:"note" binding:"max=1000"`
}

func (r EntryRequest) input() (services.EntryInput, error) {
	entryDate, err := parseDate("entry_date", r.EntryDate)
	if err != nil {
		return services.EntryInput{}, err
	}
	firstDue, err := parseDate("first_due_date", r.FirstDueDate)
	if err != nil {
		return services.EntryInput{}, err
	}
	return services.EntryInput{
		Kind:             r.Kind,
		EntryDate:        entryDate,
		CategoryID:       r.CategoryID,
		SubcategoryID:    r.SubcategoryID,
		Counterparty:     r.Counterparty,
		TotalAmount:      r.TotalAmount,
		FirstDueDate:     firstDue,
		InstallmentCount: r.InstallmentCount,
		Note:             r.Note,
	}, nil
}

// CreateEntry handles the creation of a financial entry
// @Summary     Create an entry
// @Description Create an entry and split it into monthly installments
// @Tags        entries
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body EntryRequest true "Entry details"
// @Success     201 {object} models.FinancialEntry "Entry created with installments"
// @Failure     402 {object} ErrorResponse "Subscription overdue"
// @Failure     404 {object} ErrorResponse "Category or subcategory not found"
// @Failure     422 {object} ErrorResponse "Invalid input"
// @Router      /entries [post]
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req EntryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.entryService.CreateEntry(userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateEntry, "entry", entry.ID, c.ClientIP(),
		map[string]interface{}{
			"kind":              entry.Kind,
			"total_amount":      entry.TotalAmount.StringFixed(2),
			"installment_count": entry.InstallmentCount,
		})

	c.JSON(http.StatusCreated, entry)
}

// GetUserEntries lists entries
// @Summary     List entries
// @Tags        entries
// @Produce     json
// @Security    BearerAuth
// @Param       kind        query string false "Filter by kind (expense, income)"
// @Param       category_id query string false "Filter by category ID"
// @Param       from_date   query string false "Entry date from (YYYY-MM-DD or RFC3339)"
// @Param       to_date     query string false "Entry date to (YYYY-MM-DD or RFC3339)"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.FinancialEntry] "Paginated entries"
// @Router      /entries [get]
func (h *EntryHandler) GetUserEntries(c *gin.Context) {
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

	var filter services.EntryFilter
	if filter.Kind, err = queryKind(c); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.CategoryID, err = queryUUID(c, "category_id"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.FromDate, err = queryTime(c, "from_date"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.ToDate, err = queryTime(c, "to_date"); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.entryService.GetUserEntries(userID, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetEntryByID returns an entry with its installments
// @Summary     Get an entry
// @Tags        entries
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Entry ID"
// @Success     200 {object} models.FinancialEntry "Entry"
// @Failure     404 {object} ErrorResponse "Entry not found"
// @Router      /entries/{id} [get]
func (h *EntryHandler) GetEntryByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	entryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.entryService.GetEntryByID(userID, entryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// UpdateEntry replaces an entry and regenerates its installments
// @Summary     Update an entry
// @Description Replace the entry; all installments are regenerated and payment marks are discarded
// @Tags        entries
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string       true "Entry ID"
// @Param       request body EntryRequest true "Entry details"
// @Success     200 {object} models.FinancialEntry "Entry updated"
// @Failure     404 {object} ErrorResponse "Entry not found"
// @Failure     422 {object} ErrorResponse "Invalid input"
// @Router      /entries/{id} [put]
func (h *EntryHandler) UpdateEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	entryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req EntryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		respondWithError(c, err)
		return
	}

	entry, err := h.entryService.UpdateEntry(userID, entryID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdateEntry, "entry", entryID, c.ClientIP(),
		map[string]interface{}{
			"total_amount":      entry.TotalAmount.StringFixed(2),
			"installment_count": entry.InstallmentCount,
		})

	c.JSON(http.StatusOK, entry)
}

// DeleteEntry deletes an entry and its installments
// @Summary     Delete an entry
// @Tags        entries
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Entry ID"
// @Success     200 {object} MessageResponse "Entry deleted"
// @Failure     404 {object} ErrorResponse "Entry not found"
// @Router      /entries/{id} [delete]
func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	entryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.entryService.DeleteEntry(userID, entryID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteEntry, "entry", entryID, c.ClientIP(), nil)
	respondMessage(c, "Entry deleted successfully")
}

// GetEntryInstallments lists an entry's installments
// @Summary     List entry installments
// @Tags        entries
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Entry ID"
// @Success     200 {array} models.Installment "Installments by sequence"
// @Failure     404 {object} ErrorResponse "Entry not found"
// @Router      /entries/{id}/installments [get]
func (h *EntryHandler) GetEntryInstallments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	entryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	installments, err := h.entryService.GetEntryInstallments(userID, entryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, installments)
}
