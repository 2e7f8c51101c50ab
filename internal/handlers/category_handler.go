package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/models"
	"finora/internal/services"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the request payload for creating a category
type CreateCategoryRequest struct {
	Name        string           `json:"name" binding:"required,max=100"`
	Kind        models.EntryKind `json:"kind" binding:"required,entry_kind"`
	Description string           `json:"description" binding:"max=255"`
}

// CreateSubcategoryRequest represents the request payload for creating a subcategory
type CreateSubcategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// SetSubcategoryActiveRequest toggles a subcategory
type SetSubcategoryActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// CreateCategory handles the creation of a new category
// @Summary     Create a category
// @Description Create a new expense or income category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} models.Category "Category created"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Failure     422 {object} ErrorResponse "Invalid input"
// @Router      /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.CreateCategory(userID, req.Name, req.Kind, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, category)
}

// GetUserCategories lists the user's categories
// @Summary     List categories
// @Description Paginated categories with their subcategories
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       kind      query string false "Filter by kind (expense, income)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Category] "Paginated categories"
// @Router      /categories [get]
func (h *CategoryHandler) GetUserCategories(c *gin.Context) {
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

	kind, err := queryKind(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.categoryService.GetUserCategories(userID, kind, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCategoryByID returns one category
// @Summary     Get a category
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} models.Category "Category"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategoryByID(userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// DeleteCategory deletes a category and its subcategories
// @Summary     Delete a category
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {object} MessageResponse "Category deleted"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Category in use"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.categoryService.DeleteCategory(userID, categoryID); err != nil {
		respondWithError(c, err)
		return
	}

	respondMessage(c, "Category deleted successfully")
}

// CreateSubcategory adds a subcategory to a category
// @Summary     Create a subcategory
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Category ID"
// @Param       request body CreateSubcategoryRequest true "Subcategory details"
// @Success     201 {object} models.Subcategory "Subcategory created"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "Duplicate name"
// @Router      /categories/{id}/subcategories [post]
func (h *CategoryHandler) CreateSubcategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSubcategoryRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	sub, err := h.categoryService.CreateSubcategory(userID, categoryID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// GetSubcategories lists a category's subcategories
// @Summary     List subcategories
// @Tags        categories
// @Produce     json
// @Security    BearerAuth
// @Param       id     path  string true  "Category ID"
// @Param       active query bool   false "Only active subcategories"
// @Success     200 {array} models.Subcategory "Subcategories"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/subcategories [get]
func (h *CategoryHandler) GetSubcategories(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	active, err := queryBool(c, "active")
	if err != nil {
		respondWithError(c, err)
		return
	}

	subs, err := h.categoryService.GetSubcategories(userID, categoryID, active != nil && *active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, subs)
}

// SetSubcategoryActive enables or disables a subcategory
// @Summary     Enable or disable a subcategory
// @Tags        categories
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                      true "Subcategory ID"
// @Param       request body SetSubcategoryActiveRequest true "Active flag"
// @Success     200 {object} models.Subcategory "Subcategory"
// @Failure     404 {object} ErrorResponse "Subcategory not found"
// @Router      /subcategories/{id} [patch]
func (h *CategoryHandler) SetSubcategoryActive(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	subID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetSubcategoryActiveRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	sub, err := h.categoryService.SetSubcategoryActive(userID, subID, *req.Active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

func queryKind(c *gin.Context) (*models.EntryKind, error) {
	v := c.Query("kind")
	if v == "" {
		return nil, nil
	}
	kind := models.EntryKind(v)
	switch kind {
	case models.EntryKindExpense, models.EntryKindIncome:
		return &kind, nil
	}
	return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid kind, must be expense or income")
}
