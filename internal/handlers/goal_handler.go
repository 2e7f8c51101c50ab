package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finora/internal/errors"
	"finora/internal/services"
)

// GoalHandler handles monthly goal requests.
type GoalHandler struct {
	goalService  services.GoalServicer
	auditService services.AuditServicer
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer, auditService services.AuditServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService, auditService: auditService}
}

// GoalRequest represents the payload for creating or replacing a goal.
type GoalRequest struct {
	Year         int             `json:"year" binding:"required,min=2000,max=2100" example:"2026"`
	Month        int             `json:"month" binding:"required,min=1,max=12" example:"3"`
	CategoryID   *string         `json:"category_id" binding:"omitempty,uuid"`
	TargetAmount decimal.Decimal `json:"target_amount" binding:"required,gt=0" swaggertype:"string" example:"1500.00"`
	Description  string          `json:"description" binding:"max=500"`
}

func (r GoalRequest) input() services.GoalInput {
	return services.GoalInput{
		Year:         r.Year,
		Month:        r.Month,
		CategoryID:   r.CategoryID,
		TargetAmount: r.TargetAmount,
		Description:  r.Description,
	}
}

// CreateGoal handles the creation of a monthly goal.
// @Summary     Create a goal
// @Description Plan an amount for one month, for one category or for all expenses
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body GoalRequest true "Goal details"
// @Success     201 {object} models.Goal "Goal created"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Goal already exists"
// @Failure     422 {object} ErrorResponse "Invalid input"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req GoalRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.CreateGoal(userID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreateGoal, "goal", goal.ID, c.ClientIP(),
		map[string]interface{}{"year": goal.Year, "month": goal.Month, "target_amount": goal.TargetAmount.StringFixed(2)})

	c.JSON(http.StatusCreated, goal)
}

// GetUserGoals handles listing goals.
// @Summary     List goals
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       year        query int    false "Filter by year"
// @Param       month       query int    false "Filter by month (1-12)"
// @Param       category_id query string false "Filter by category ID"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Goal] "Paginated goals, newest month first"
// @Failure     422 {object} ErrorResponse "Invalid filter"
// @Router      /goals [get]
func (h *GoalHandler) GetUserGoals(c *gin.Context) {
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
	var filter services.GoalFilter
	if filter.Year, err = queryInt(c, "year"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.Month, err = queryInt(c, "month"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.CategoryID, err = queryUUID(c, "category_id"); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.goalService.GetUserGoals(userID, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetGoalByID handles retrieving one goal.
// @Summary     Get a goal
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} models.Goal "Goal"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoalByID(c *gin.Context) {
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

	goal, err := h.goalService.GetGoalByID(userID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, goal)
}

// UpdateGoal handles replacing a goal.
// @Summary     Update a goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string      true "Goal ID"
// @Param       request body GoalRequest true "Goal details"
// @Success     200 {object} models.Goal "Updated goal"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     409 {object} ErrorResponse "Goal already exists"
// @Failure     422 {object} ErrorResponse "Invalid input"
// @Router      /goals/{id} [put]
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
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

	var req GoalRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.UpdateGoal(userID, id, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdateGoal, "goal", id, c.ClientIP(),
		map[string]interface{}{"year": goal.Year, "month": goal.Month, "target_amount": goal.TargetAmount.StringFixed(2)})

	c.JSON(http.StatusOK, goal)
}

// DeleteGoal handles deleting a goal.
// @Summary     Delete a goal
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
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

	if err := h.goalService.DeleteGoal(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDeleteGoal, "goal", id, c.ClientIP(), nil)
	respondMessage(c, "Goal deleted successfully")
}

// GetMonthProgress handles comparing a month's goals with its installments.
// @Summary     Get goal progress for a month
// @Description Scheduled and paid installment totals against every goal of the month
// @Tags        goals
// @Produce     json
// @Security    BearerAuth
// @Param       year  path int true "Year"
// @Param       month path int true "Month (1-12)"
// @Success     200 {object} services.MonthProgress "Month progress"
// @Failure     422 {object} ErrorResponse "Invalid year or month"
// @Router      /goals/progress/{year}/{month} [get]
func (h *GoalHandler) GetMonthProgress(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid year"))
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid month"))
		return
	}

	progress, err := h.goalService.GetMonthProgress(userID, year, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}
