package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/models"
	"finora/internal/pagination"
)

const testCategoryID = "0191f4a2-7c3e-7b8a-9d1e-2f3a4b5c6d80"

func setupCategoryRouter(svc *mockCategoryService) *gin.Engine {
	h := NewCategoryHandler(svc)
	r := gin.New()
	g := r.Group("", injectUserID(testUserID))
	g.POST("/categories", h.CreateCategory)
	g.GET("/categories", h.GetUserCategories)
	g.GET("/categories/:id", h.GetCategoryByID)
	g.DELETE("/categories/:id", h.DeleteCategory)
	g.POST("/categories/:id/subcategories", h.CreateSubcategory)
	g.GET("/categories/:id/subcategories", h.GetSubcategories)
	g.PATCH("/subcategories/:id", h.SetSubcategoryActive)
	return r
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var gotKind models.EntryKind
		svc := &mockCategoryService{
			createCategoryFn: func(userID, name string, kind models.EntryKind, _ string) (*models.Category, error) {
				gotKind = kind
				return &models.Category{TenantOwned: models.TenantOwned{UserID: userID}, Name: name, Kind: kind}, nil
			},
		}
		rec := doRequest(setupCategoryRouter(svc), http.MethodPost, "/categories", `{"name":"Groceries","kind":"expense"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotKind != models.EntryKindExpense {
			t.Errorf("expected expense, got %q", gotKind)
		}
		body := parseJSON(t, rec)
		if body["user_id"] != testUserID {
			t.Errorf("expected owner %s, got %v", testUserID, body["user_id"])
		}
	})

	t.Run("returns 422 on unknown kind", func(t *testing.T) {
		rec := doRequest(setupCategoryRouter(&mockCategoryService{}), http.MethodPost, "/categories",
			`{"name":"Groceries","kind":"transfer"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_ERROR")
	})

	t.Run("returns 409 on duplicate name", func(t *testing.T) {
		svc := &mockCategoryService{
			createCategoryFn: func(_, _ string, _ models.EntryKind, _ string) (*models.Category, error) {
				return nil, apperrors.ErrDuplicateName
			},
		}
		rec := doRequest(setupCategoryRouter(svc), http.MethodPost, "/categories", `{"name":"Groceries","kind":"expense"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_GetUserCategories(t *testing.T) {
	t.Run("forwards kind filter and page", func(t *testing.T) {
		var gotKind *models.EntryKind
		var gotPage pagination.PageRequest
		svc := &mockCategoryService{
			getUserCategoriesFn: func(_ string, kind *models.EntryKind, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
				gotKind, gotPage = kind, page
				resp := pagination.NewPageResponse([]models.Category{{Name: "Salary"}}, 2, 5, 6)
				return &resp, nil
			},
		}
		rec := doRequest(setupCategoryRouter(svc), http.MethodGet, "/categories?kind=income&page=2&page_size=5", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotKind == nil || *gotKind != models.EntryKindIncome {
			t.Errorf("expected income filter, got %v", gotKind)
		}
		if gotPage.Page != 2 || gotPage.PageSize != 5 {
			t.Errorf("expected page 2/5, got %+v", gotPage)
		}
		body := parseJSON(t, rec)
		if body["total_pages"] != float64(2) {
			t.Errorf("expected 2 pages, got %v", body["total_pages"])
		}
	})

	t.Run("returns 422 on invalid kind", func(t *testing.T) {
		rec := doRequest(setupCategoryRouter(&mockCategoryService{}), http.MethodGet, "/categories?kind=other", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("returns 422 on oversized page", func(t *testing.T) {
		rec := doRequest(setupCategoryRouter(&mockCategoryService{}), http.MethodGet, "/categories?page_size=500", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_GetCategoryByID(t *testing.T) {
	t.Run("returns 422 on malformed id", func(t *testing.T) {
		rec := doRequest(setupCategoryRouter(&mockCategoryService{}), http.MethodGet, "/categories/42", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		body := parseJSON(t, rec)
		if body["detail"] != "Invalid id" {
			t.Errorf("expected detail 'Invalid id', got %v", body["detail"])
		}
	})

	t.Run("returns 404 for another tenant's category", func(t *testing.T) {
		svc := &mockCategoryService{
			getCategoryByIDFn: func(string, string) (*models.Category, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		rec := doRequest(setupCategoryRouter(svc), http.MethodGet, "/categories/"+testCategoryID, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_NOT_FOUND")
	})
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		var gotID string
		svc := &mockCategoryService{
			deleteCategoryFn: func(_, id string) error {
				gotID = id
				return nil
			},
		}
		rec := doRequest(setupCategoryRouter(svc), http.MethodDelete, "/categories/"+testCategoryID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotID != testCategoryID {
			t.Errorf("expected id %s, got %s", testCategoryID, gotID)
		}
	})

	t.Run("returns 409 when in use", func(t *testing.T) {
		svc := &mockCategoryService{
			deleteCategoryFn: func(string, string) error { return apperrors.ErrCategoryInUse },
		}
		rec := doRequest(setupCategoryRouter(svc), http.MethodDelete, "/categories/"+testCategoryID, "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_Subcategories(t *testing.T) {
	t.Run("create returns 201", func(t *testing.T) {
		rec := doRequest(setupCategoryRouter(&mockCategoryService{}), http.MethodPost,
			"/categories/"+testCategoryID+"/subcategories", `{"name":"Supermarket"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		body := parseJSON(t, rec)
		if body["category_id"] != testCategoryID {
			t.Errorf("expected category_id %s, got %v", testCategoryID, body["category_id"])
		}
	})

	t.Run("list honours active filter", func(t *testing.T) {
		var gotActive bool
		svc := &mockCategoryService{
			getSubcategoriesFn: func(_, _ string, activeOnly bool) ([]models.Subcategory, error) {
				gotActive = activeOnly
				return []models.Subcategory{}, nil
			},
		}
		rec := doRequest(setupCategoryRouter(svc), http.MethodGet,
			"/categories/"+testCategoryID+"/subcategories?active=true", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !gotActive {
			t.Error("expected active-only listing")
		}
	})

	t.Run("set active requires the flag", func(t *testing.T) {
		rec := doRequest(setupCategoryRouter(&mockCategoryService{}), http.MethodPatch,
			"/subcategories/"+testCategoryID, `{}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("set active false disables", func(t *testing.T) {
		rec := doRequest(setupCategoryRouter(&mockCategoryService{}), http.MethodPatch,
			"/subcategories/"+testCategoryID, `{"active":false}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["is_active"] != false {
			t.Error("expected subcategory to be inactive")
		}
	})
}
