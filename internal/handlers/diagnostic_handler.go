package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finora/internal/services"
)

// DiagnosticHandler handles ledger integrity checks
type DiagnosticHandler struct {
	diagnosticService services.DiagnosticServicer
}

// NewDiagnosticHandler creates a new DiagnosticHandler
func NewDiagnosticHandler(diagnosticService services.DiagnosticServicer) *DiagnosticHandler {
	return &DiagnosticHandler{diagnosticService: diagnosticService}
}

// CheckLedger checks the caller's entries and installments
// @Summary     Check ledger integrity
// @Description Report orphaned installments, negative totals and entries whose installments do not add up
// @Tags        diagnostics
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.IntegrityReport "Integrity report"
// @Failure     401 {object} ErrorResponse "Not authenticated"
// @Router      /diagnostics [get]
func (h *DiagnosticHandler) CheckLedger(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.diagnosticService.CheckLedger(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// CheckAllLedgers checks every tenant's ledger
// @Summary     Check ledger integrity for all users
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.IntegrityReport "Integrity report"
// @Failure     403 {object} ErrorResponse "Administrator access required"
// @Router      /admin/diagnostics [get]
func (h *DiagnosticHandler) CheckAllLedgers(c *gin.Context) {
	report, err := h.diagnosticService.CheckAllLedgers()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
