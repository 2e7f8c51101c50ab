package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "finora/internal/errors"
	"finora/internal/models"
	"finora/internal/services"
)

const testRecurringID = "0191f4a2-7c3e-7b8a-9d1e-2f3a4b5c6db0"

func setupRecurringRouter(svc *mockRecurringService, audit *mockAuditService) *gin.Engine {
	h := NewRecurringHandler(svc, audit)
	r := gin.New()
	g := r.Group("", injectUserID(testUserID))
	g.POST("/recurring", h.CreateRecurring)
	g.GET("/recurring", h.GetUserRecurring)
	g.GET("/recurring/:id", h.GetRecurringByID)
	g.PUT("/recurring/:id", h.UpdateRecurring)
	g.POST("/recurring/:id/toggle", h.ToggleRecurring)
	g.DELETE("/recurring/:id", h.DeleteRecurring)
	g.POST("/recurring/:id/generate", h.GenerateRecurring)
	return r
}

func TestRecurringHandler_CreateRecurring(t *testing.T) {
	t.Run("defaults installment count to one", func(t *testing.T) {
		var got services.RecurringInput
		svc := &mockRecurringService{
			createFn: func(_ string, in services.RecurringInput) (*models.RecurringEntry, error) {
				got = in
				return &models.RecurringEntry{Counterparty: in.Counterparty, IsActive: true}, nil
			},
		}
		rec := doRequest(setupRecurringRouter(svc, &mockAuditService{}), http.MethodPost, "/recurring",
			`{"kind":"expense","counterparty":"Rent","total_amount":"1500.00","due_day":5,"frequency":"monthly"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.InstallmentCount != 1 {
			t.Errorf("expected default count 1, got %d", got.InstallmentCount)
		}
		if got.Frequency != models.FrequencyMonthly {
			t.Errorf("expected monthly, got %q", got.Frequency)
		}
		if !got.StartDate.IsZero() {
			t.Errorf("expected zero start date, got %v", got.StartDate)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"due day 32", `{"kind":"expense","counterparty":"Rent","total_amount":"10","due_day":32,"frequency":"monthly"}`},
		{"unknown frequency", `{"kind":"expense","counterparty":"Rent","total_amount":"10","due_day":5,"frequency":"weekly"}`},
		{"bad start date", `{"kind":"expense","counterparty":"Rent","total_amount":"10","due_day":5,"frequency":"yearly","start_date":"2026-13-01"}`},
	}
	for _, tt := range tests {
		t.Run("returns 422 on "+tt.name, func(t *testing.T) {
			rec := doRequest(setupRecurringRouter(&mockRecurringService{}, &mockAuditService{}), http.MethodPost, "/recurring", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRecurringHandler_UpdateRecurring(t *testing.T) {
	var gotID string
	svc := &mockRecurringService{
		updateFn: func(_, id string, in services.RecurringInput) (*models.RecurringEntry, error) {
			gotID = id
			return &models.RecurringEntry{Counterparty: in.Counterparty}, nil
		},
	}
	rec := doRequest(setupRecurringRouter(svc, &mockAuditService{}), http.MethodPut, "/recurring/"+testRecurringID,
		`{"kind":"income","counterparty":"Salary","total_amount":"5000","due_day":30,"frequency":"monthly","installment_count":12}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotID != testRecurringID {
		t.Errorf("expected id %s, got %s", testRecurringID, gotID)
	}
}

func TestRecurringHandler_GenerateRecurring(t *testing.T) {
	t.Run("returns 201 and audits the new entry", func(t *testing.T) {
		svc := &mockRecurringService{
			generateFn: func(_, id string) (*models.FinancialEntry, error) {
				return &models.FinancialEntry{Base: models.Base{ID: testEntryID}, RecurringEntryID: &id}, nil
			},
		}
		audit := &mockAuditService{}
		rec := doRequest(setupRecurringRouter(svc, audit), http.MethodPost, "/recurring/"+testRecurringID+"/generate", "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["recurring_entry_id"] != testRecurringID {
			t.Error("expected generated entry to reference its template")
		}
		if len(audit.calls) != 1 || audit.calls[0].resourceID != testEntryID {
			t.Errorf("expected audit for entry %s, got %+v", testEntryID, audit.calls)
		}
	})

	t.Run("returns 404 for unknown template", func(t *testing.T) {
		svc := &mockRecurringService{
			generateFn: func(string, string) (*models.FinancialEntry, error) {
				return nil, apperrors.ErrRecurringNotFound
			},
		}
		audit := &mockAuditService{}
		rec := doRequest(setupRecurringRouter(svc, audit), http.MethodPost, "/recurring/"+testRecurringID+"/generate", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if len(audit.actions()) != 0 {
			t.Error("failed generation must not be audited")
		}
	})
}

func TestRecurringHandler_ToggleAndDelete(t *testing.T) {
	toggled, deleted := false, false
	svc := &mockRecurringService{
		toggleFn: func(string, string) (*models.RecurringEntry, error) {
			toggled = true
			return &models.RecurringEntry{IsActive: false}, nil
		},
		deleteFn: func(string, string) error {
			deleted = true
			return nil
		},
	}
	r := setupRecurringRouter(svc, &mockAuditService{})

	if rec := doRequest(r, http.MethodPost, "/recurring/"+testRecurringID+"/toggle", ""); rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", rec.Code)
	}
	if rec := doRequest(r, http.MethodDelete, "/recurring/"+testRecurringID, ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if !toggled || !deleted {
		t.Errorf("expected toggle and delete to reach the service, got %v %v", toggled, deleted)
	}
}

func setupPaymentMethodRouter(svc *mockPaymentMethodService) *gin.Engine {
	h := NewPaymentMethodHandler(svc)
	r := gin.New()
	g := r.Group("", injectUserID(testUserID))
	g.POST("/payment-methods", h.CreatePaymentMethod)
	g.GET("/payment-methods", h.GetPaymentMethods)
	g.PUT("/payment-methods/:id", h.UpdatePaymentMethod)
	g.DELETE("/payment-methods/:id", h.DeletePaymentMethod)
	return r
}

func TestPaymentMethodHandler(t *testing.T) {
	t.Run("create defaults to active", func(t *testing.T) {
		var got services.PaymentMethodInput
		svc := &mockPaymentMethodService{
			createFn: func(_ string, in services.PaymentMethodInput) (*models.PaymentMethod, error) {
				got = in
				return &models.PaymentMethod{Name: in.Name, Type: in.Type, IsActive: in.IsActive}, nil
			},
		}
		rec := doRequest(setupPaymentMethodRouter(svc), http.MethodPost, "/payment-methods",
			`{"name":"Nubank","type":"credit_card","credit_limit":"5000.00"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.IsActive {
			t.Error("expected active by default")
		}
		if got.CreditLimit == nil || !got.CreditLimit.Equal(money("5000")) {
			t.Errorf("expected credit limit 5000, got %v", got.CreditLimit)
		}
	})

	t.Run("create rejects unknown type", func(t *testing.T) {
		rec := doRequest(setupPaymentMethodRouter(&mockPaymentMethodService{}), http.MethodPost, "/payment-methods",
			`{"name":"Wallet","type":"crypto"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("list forwards active filter", func(t *testing.T) {
		var got *bool
		svc := &mockPaymentMethodService{
			listFn: func(_ string, active *bool) ([]models.PaymentMethod, error) {
				got = active
				return []models.PaymentMethod{}, nil
			},
		}
		rec := doRequest(setupPaymentMethodRouter(svc), http.MethodGet, "/payment-methods?active=false", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got == nil || *got {
			t.Errorf("expected active=false filter, got %v", got)
		}
	})

	t.Run("update can deactivate", func(t *testing.T) {
		var got services.PaymentMethodInput
		svc := &mockPaymentMethodService{
			updateFn: func(_, _ string, in services.PaymentMethodInput) (*models.PaymentMethod, error) {
				got = in
				return &models.PaymentMethod{IsActive: in.IsActive}, nil
			},
		}
		rec := doRequest(setupPaymentMethodRouter(svc), http.MethodPut, "/payment-methods/"+testCategoryID,
			`{"name":"Nubank","type":"debit_card","is_active":false}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.IsActive {
			t.Error("expected is_active=false forwarded")
		}
	})

	t.Run("delete returns 409 when referenced", func(t *testing.T) {
		svc := &mockPaymentMethodService{
			deleteFn: func(string, string) error { return apperrors.ErrPaymentMethodInUse },
		}
		rec := doRequest(setupPaymentMethodRouter(svc), http.MethodDelete, "/payment-methods/"+testCategoryID, "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "PAYMENT_METHOD_IN_USE")
	})
}
