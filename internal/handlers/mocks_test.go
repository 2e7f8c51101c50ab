package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finora/internal/models"
	"finora/internal/notify"
	"finora/internal/pagination"
	"finora/internal/services"
	"finora/internal/validator"
)

const (
	testUserID  = "0191f4a2-7c3e-7b8a-9d1e-2f3a4b5c6d70"
	testOtherID = "0191f4a2-7c3e-7b8a-9d1e-2f3a4b5c6d71"
)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	if result["code"] != code {
		t.Errorf("expected error code %q, got %q (body: %v)", code, result["code"], result)
	}
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- audit ---

type auditCall struct {
	userID, action, resourceType, resourceID string
	changes                                  map[string]interface{}
}

type mockAuditService struct {
	mu    sync.Mutex
	calls []auditCall
}

func (m *mockAuditService) Log(userID, action, resourceType, resourceID, _ string, changes map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, auditCall{userID, action, resourceType, resourceID, changes})
}

func (m *mockAuditService) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	for i, c := range m.calls {
		out[i] = c.action
	}
	return out
}

var _ services.AuditServicer = (*mockAuditService)(nil)

// --- users ---

type mockUserService struct {
	registerFn            func(email, name, password string) (*models.User, error)
	getUserFn             func(userID string) (*models.User, error)
	updateProfileFn       func(userID string, name, email *string) (*models.User, error)
	changePasswordFn      func(userID, current, newPassword, confirm string) error
	changeAdminPasswordFn func(userID, current, newPassword, confirm string) error
	createAdminFn         func(email, name, password string) (*models.User, error)
	resetPasswordFn       func(email, newPassword string) error
	listUsersFn           func(active *bool, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	deactivateFn          func(actorID, userID string) error
}

func (m *mockUserService) Register(email, name, password string) (*models.User, error) {
	if m.registerFn != nil {
		return m.registerFn(email, name, password)
	}
	return &models.User{Base: models.Base{ID: testUserID}, Email: email, Name: name, IsActive: true}, nil
}

func (m *mockUserService) GetUser(userID string) (*models.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(userID)
	}
	return &models.User{Base: models.Base{ID: userID}, IsActive: true}, nil
}

func (m *mockUserService) UpdateProfile(userID string, name, email *string) (*models.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(userID, name, email)
	}
	return &models.User{Base: models.Base{ID: userID}}, nil
}

func (m *mockUserService) ChangePassword(userID, current, newPassword, confirm string) error {
	if m.changePasswordFn != nil {
		return m.changePasswordFn(userID, current, newPassword, confirm)
	}
	return nil
}

func (m *mockUserService) ChangeAdminPassword(userID, current, newPassword, confirm string) error {
	if m.changeAdminPasswordFn != nil {
		return m.changeAdminPasswordFn(userID, current, newPassword, confirm)
	}
	return nil
}

func (m *mockUserService) CreateAdmin(email, name, password string) (*models.User, error) {
	if m.createAdminFn != nil {
		return m.createAdminFn(email, name, password)
	}
	return &models.User{Base: models.Base{ID: testOtherID}, Email: email, Name: name, IsActive: true, IsAdmin: true}, nil
}

func (m *mockUserService) ResetPassword(email, newPassword string) error {
	if m.resetPasswordFn != nil {
		return m.resetPasswordFn(email, newPassword)
	}
	return nil
}

func (m *mockUserService) ListUsers(active *bool, page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(active, page)
	}
	resp := pagination.NewPageResponse([]models.User{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockUserService) Deactivate(actorID, userID string) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(actorID, userID)
	}
	return nil
}

var _ services.UserServicer = (*mockUserService)(nil)

// --- auth ---

type mockAuthService struct {
	loginFn          func(req services.LoginRequest) (*services.LoginResult, error)
	authenticateFn   func(token string) (*models.User, error)
	unblockFn        func(email string, admin bool) (int64, error)
	recentAttemptsFn func(email string, limit int) ([]models.LoginAttempt, error)
}

func (m *mockAuthService) Login(req services.LoginRequest) (*services.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(req)
	}
	user := &models.User{Base: models.Base{ID: testUserID}, Email: req.Email, IsActive: true, IsAdmin: req.Admin}
	return &services.LoginResult{User: user, Token: "signed-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAuthService) Authenticate(token string) (*models.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(token)
	}
	return &models.User{Base: models.Base{ID: testUserID}, IsActive: true}, nil
}

func (m *mockAuthService) IssueToken(user *models.User) (*services.LoginResult, error) {
	return &services.LoginResult{User: user, Token: "signed-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAuthService) TokenTTL() time.Duration { return time.Hour }

func (m *mockAuthService) Unblock(email string, admin bool) (int64, error) {
	if m.unblockFn != nil {
		return m.unblockFn(email, admin)
	}
	return 1, nil
}

func (m *mockAuthService) RecentAttempts(email string, limit int) ([]models.LoginAttempt, error) {
	if m.recentAttemptsFn != nil {
		return m.recentAttemptsFn(email, limit)
	}
	return []models.LoginAttempt{}, nil
}

var _ services.AuthServicer = (*mockAuthService)(nil)

// --- billing ---

type mockSubscriptionService struct {
	getFn           func(userID string) (*models.Subscription, error)
	recordPaymentFn func(userID string, in services.PaymentInput) (*models.Payment, *models.Subscription, error)
	activateFn      func(userID string, monthlyAmount *decimal.Decimal) (*models.Subscription, error)
	cancelFn        func(userID string) (*models.Subscription, error)
	listPaymentsFn  func(userID string, limit int) ([]models.Payment, error)
	statsFn         func() (*services.BillingStats, error)
}

func (m *mockSubscriptionService) Ensure(userID string) (*models.Subscription, error) {
	return m.Get(userID)
}

func (m *mockSubscriptionService) Get(userID string) (*models.Subscription, error) {
	if m.getFn != nil {
		return m.getFn(userID)
	}
	return &models.Subscription{UserID: userID, Status: models.SubscriptionTrial}, nil
}

func (m *mockSubscriptionService) CheckWriteAccess(string) error { return nil }

func (m *mockSubscriptionService) RecordPayment(userID string, in services.PaymentInput) (*models.Payment, *models.Subscription, error) {
	if m.recordPaymentFn != nil {
		return m.recordPaymentFn(userID, in)
	}
	return &models.Payment{Amount: in.Amount, Reference: in.Reference},
		&models.Subscription{UserID: userID, Status: models.SubscriptionActive}, nil
}

func (m *mockSubscriptionService) Activate(userID string, monthlyAmount *decimal.Decimal) (*models.Subscription, error) {
	if m.activateFn != nil {
		return m.activateFn(userID, monthlyAmount)
	}
	return &models.Subscription{UserID: userID, Status: models.SubscriptionActive}, nil
}

func (m *mockSubscriptionService) Cancel(userID string) (*models.Subscription, error) {
	if m.cancelFn != nil {
		return m.cancelFn(userID)
	}
	return &models.Subscription{UserID: userID, Status: models.SubscriptionCancelled}, nil
}

func (m *mockSubscriptionService) ListPayments(userID string, limit int) ([]models.Payment, error) {
	if m.listPaymentsFn != nil {
		return m.listPaymentsFn(userID, limit)
	}
	return []models.Payment{}, nil
}

func (m *mockSubscriptionService) Stats() (*services.BillingStats, error) {
	if m.statsFn != nil {
		return m.statsFn()
	}
	return &services.BillingStats{ByStatus: map[models.SubscriptionStatus]int64{}}, nil
}

var _ services.SubscriptionServicer = (*mockSubscriptionService)(nil)

// --- categories ---

type mockCategoryService struct {
	createCategoryFn       func(userID, name string, kind models.EntryKind, description string) (*models.Category, error)
	getUserCategoriesFn    func(userID string, kind *models.EntryKind, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	getCategoryByIDFn      func(userID, categoryID string) (*models.Category, error)
	deleteCategoryFn       func(userID, categoryID string) error
	createSubcategoryFn    func(userID, categoryID, name string) (*models.Subcategory, error)
	getSubcategoriesFn     func(userID, categoryID string, activeOnly bool) ([]models.Subcategory, error)
	setSubcategoryActiveFn func(userID, subcategoryID string, active bool) (*models.Subcategory, error)
}

func (m *mockCategoryService) CreateCategory(userID, name string, kind models.EntryKind, description string) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(userID, name, kind, description)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) GetUserCategories(userID string, kind *models.EntryKind, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	if m.getUserCategoriesFn != nil {
		return m.getUserCategoriesFn(userID, kind, page)
	}
	resp := pagination.NewPageResponse([]models.Category{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockCategoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	if m.getCategoryByIDFn != nil {
		return m.getCategoryByIDFn(userID, categoryID)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) DeleteCategory(userID, categoryID string) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(userID, categoryID)
	}
	return nil
}

func (m *mockCategoryService) CreateSubcategory(userID, categoryID, name string) (*models.Subcategory, error) {
	if m.createSubcategoryFn != nil {
		return m.createSubcategoryFn(userID, categoryID, name)
	}
	return &models.Subcategory{Name: name, CategoryID: categoryID, IsActive: true}, nil
}

func (m *mockCategoryService) GetSubcategories(userID, categoryID string, activeOnly bool) ([]models.Subcategory, error) {
	if m.getSubcategoriesFn != nil {
		return m.getSubcategoriesFn(userID, categoryID, activeOnly)
	}
	return []models.Subcategory{}, nil
}

func (m *mockCategoryService) SetSubcategoryActive(userID, subcategoryID string, active bool) (*models.Subcategory, error) {
	if m.setSubcategoryActiveFn != nil {
		return m.setSubcategoryActiveFn(userID, subcategoryID, active)
	}
	return &models.Subcategory{IsActive: active}, nil
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

// --- payment methods ---

type mockPaymentMethodService struct {
	createFn func(userID string, in services.PaymentMethodInput) (*models.PaymentMethod, error)
	listFn   func(userID string, active *bool) ([]models.PaymentMethod, error)
	getFn    func(userID, id string) (*models.PaymentMethod, error)
	updateFn func(userID, id string, in services.PaymentMethodInput) (*models.PaymentMethod, error)
	toggleFn func(userID, id string) (*models.PaymentMethod, error)
	deleteFn func(userID, id string) error
}

func (m *mockPaymentMethodService) CreatePaymentMethod(userID string, in services.PaymentMethodInput) (*models.PaymentMethod, error) {
	if m.createFn != nil {
		return m.createFn(userID, in)
	}
	return &models.PaymentMethod{Name: in.Name, Type: in.Type, IsActive: in.IsActive}, nil
}

func (m *mockPaymentMethodService) GetPaymentMethods(userID string, active *bool) ([]models.PaymentMethod, error) {
	if m.listFn != nil {
		return m.listFn(userID, active)
	}
	return []models.PaymentMethod{}, nil
}

func (m *mockPaymentMethodService) GetPaymentMethodByID(userID, id string) (*models.PaymentMethod, error) {
	if m.getFn != nil {
		return m.getFn(userID, id)
	}
	return &models.PaymentMethod{}, nil
}

func (m *mockPaymentMethodService) UpdatePaymentMethod(userID, id string, in services.PaymentMethodInput) (*models.PaymentMethod, error) {
	if m.updateFn != nil {
		return m.updateFn(userID, id, in)
	}
	return &models.PaymentMethod{Name: in.Name, Type: in.Type, IsActive: in.IsActive}, nil
}

func (m *mockPaymentMethodService) TogglePaymentMethod(userID, id string) (*models.PaymentMethod, error) {
	if m.toggleFn != nil {
		return m.toggleFn(userID, id)
	}
	return &models.PaymentMethod{}, nil
}

func (m *mockPaymentMethodService) DeletePaymentMethod(userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(userID, id)
	}
	return nil
}

var _ services.PaymentMethodServicer = (*mockPaymentMethodService)(nil)

// --- entries ---

type mockEntryService struct {
	createFn       func(userID string, in services.EntryInput) (*models.FinancialEntry, error)
	getFn          func(userID, entryID string) (*models.FinancialEntry, error)
	listFn         func(userID string, filter services.EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.FinancialEntry], error)
	updateFn       func(userID, entryID string, in services.EntryInput) (*models.FinancialEntry, error)
	deleteFn       func(userID, entryID string) error
	installmentsFn func(userID, entryID string) ([]models.Installment, error)
}

func (m *mockEntryService) CreateEntry(userID string, in services.EntryInput) (*models.FinancialEntry, error) {
	if m.createFn != nil {
		return m.createFn(userID, in)
	}
	return &models.FinancialEntry{TotalAmount: in.TotalAmount, InstallmentCount: in.InstallmentCount}, nil
}

func (m *mockEntryService) GetEntryByID(userID, entryID string) (*models.FinancialEntry, error) {
	if m.getFn != nil {
		return m.getFn(userID, entryID)
	}
	return &models.FinancialEntry{}, nil
}

func (m *mockEntryService) GetUserEntries(userID string, filter services.EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.FinancialEntry], error) {
	if m.listFn != nil {
		return m.listFn(userID, filter, page)
	}
	resp := pagination.NewPageResponse([]models.FinancialEntry{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockEntryService) UpdateEntry(userID, entryID string, in services.EntryInput) (*models.FinancialEntry, error) {
	if m.updateFn != nil {
		return m.updateFn(userID, entryID, in)
	}
	return &models.FinancialEntry{TotalAmount: in.TotalAmount, InstallmentCount: in.InstallmentCount}, nil
}

func (m *mockEntryService) DeleteEntry(userID, entryID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(userID, entryID)
	}
	return nil
}

func (m *mockEntryService) GetEntryInstallments(userID, entryID string) ([]models.Installment, error) {
	if m.installmentsFn != nil {
		return m.installmentsFn(userID, entryID)
	}
	return []models.Installment{}, nil
}

var _ services.EntryServicer = (*mockEntryService)(nil)

// --- installments ---

type mockInstallmentService struct {
	listFn       func(userID string, filter services.InstallmentFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Installment], error)
	getFn        func(userID, id string) (*models.Installment, error)
	setPaidFn    func(userID, id string, upd services.PaymentUpdate) (*models.Installment, error)
	rescheduleFn func(userID, id string, dueDate time.Time, amount decimal.Decimal) (*models.Installment, error)
}

func (m *mockInstallmentService) GetUserInstallments(userID string, filter services.InstallmentFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Installment], error) {
	if m.listFn != nil {
		return m.listFn(userID, filter, page)
	}
	resp := pagination.NewPageResponse([]models.Installment{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockInstallmentService) GetInstallmentByID(userID, id string) (*models.Installment, error) {
	if m.getFn != nil {
		return m.getFn(userID, id)
	}
	return &models.Installment{}, nil
}

func (m *mockInstallmentService) SetPaid(userID, id string, upd services.PaymentUpdate) (*models.Installment, error) {
	if m.setPaidFn != nil {
		return m.setPaidFn(userID, id, upd)
	}
	return &models.Installment{Paid: upd.Paid}, nil
}

func (m *mockInstallmentService) Reschedule(userID, id string, dueDate time.Time, amount decimal.Decimal) (*models.Installment, error) {
	if m.rescheduleFn != nil {
		return m.rescheduleFn(userID, id, dueDate, amount)
	}
	return &models.Installment{DueDate: dueDate, Amount: amount}, nil
}

var _ services.InstallmentServicer = (*mockInstallmentService)(nil)

// --- recurring ---

type mockRecurringService struct {
	createFn   func(userID string, in services.RecurringInput) (*models.RecurringEntry, error)
	listFn     func(userID string) ([]models.RecurringEntry, error)
	getFn      func(userID, id string) (*models.RecurringEntry, error)
	updateFn   func(userID, id string, in services.RecurringInput) (*models.RecurringEntry, error)
	toggleFn   func(userID, id string) (*models.RecurringEntry, error)
	deleteFn   func(userID, id string) error
	generateFn func(userID, id string) (*models.FinancialEntry, error)
}

func (m *mockRecurringService) CreateRecurring(userID string, in services.RecurringInput) (*models.RecurringEntry, error) {
	if m.createFn != nil {
		return m.createFn(userID, in)
	}
	return &models.RecurringEntry{Counterparty: in.Counterparty, IsActive: true}, nil
}

func (m *mockRecurringService) GetUserRecurring(userID string) ([]models.RecurringEntry, error) {
	if m.listFn != nil {
		return m.listFn(userID)
	}
	return []models.RecurringEntry{}, nil
}

func (m *mockRecurringService) GetRecurringByID(userID, id string) (*models.RecurringEntry, error) {
	if m.getFn != nil {
		return m.getFn(userID, id)
	}
	return &models.RecurringEntry{}, nil
}

func (m *mockRecurringService) UpdateRecurring(userID, id string, in services.RecurringInput) (*models.RecurringEntry, error) {
	if m.updateFn != nil {
		return m.updateFn(userID, id, in)
	}
	return &models.RecurringEntry{Counterparty: in.Counterparty}, nil
}

func (m *mockRecurringService) ToggleRecurring(userID, id string) (*models.RecurringEntry, error) {
	if m.toggleFn != nil {
		return m.toggleFn(userID, id)
	}
	return &models.RecurringEntry{}, nil
}

func (m *mockRecurringService) DeleteRecurring(userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(userID, id)
	}
	return nil
}

func (m *mockRecurringService) Generate(userID, id string) (*models.FinancialEntry, error) {
	if m.generateFn != nil {
		return m.generateFn(userID, id)
	}
	return &models.FinancialEntry{RecurringEntryID: &id}, nil
}

var _ services.RecurringServicer = (*mockRecurringService)(nil)

// --- goals ---

type mockGoalService struct {
	createFn   func(userID string, in services.GoalInput) (*models.Goal, error)
	listFn     func(userID string, filter services.GoalFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	getFn      func(userID, id string) (*models.Goal, error)
	updateFn   func(userID, id string, in services.GoalInput) (*models.Goal, error)
	deleteFn   func(userID, id string) error
	progressFn func(userID string, year, month int) (*services.MonthProgress, error)
}

func (m *mockGoalService) CreateGoal(userID string, in services.GoalInput) (*models.Goal, error) {
	if m.createFn != nil {
		return m.createFn(userID, in)
	}
	return &models.Goal{Base: models.Base{ID: testOtherID}, Year: in.Year, Month: in.Month, TargetAmount: in.TargetAmount}, nil
}

func (m *mockGoalService) GetUserGoals(userID string, filter services.GoalFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	if m.listFn != nil {
		return m.listFn(userID, filter, page)
	}
	result := pagination.NewPageResponse([]models.Goal{}, 1, 20, 0)
	return &result, nil
}

func (m *mockGoalService) GetGoalByID(userID, id string) (*models.Goal, error) {
	if m.getFn != nil {
		return m.getFn(userID, id)
	}
	return &models.Goal{Base: models.Base{ID: id}}, nil
}

func (m *mockGoalService) UpdateGoal(userID, id string, in services.GoalInput) (*models.Goal, error) {
	if m.updateFn != nil {
		return m.updateFn(userID, id, in)
	}
	return &models.Goal{Base: models.Base{ID: id}, Year: in.Year, Month: in.Month, TargetAmount: in.TargetAmount}, nil
}

func (m *mockGoalService) DeleteGoal(userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(userID, id)
	}
	return nil
}

func (m *mockGoalService) GetMonthProgress(userID string, year, month int) (*services.MonthProgress, error) {
	if m.progressFn != nil {
		return m.progressFn(userID, year, month)
	}
	return &services.MonthProgress{Year: year, Month: month, Goals: []services.GoalProgress{}}, nil
}

var _ services.GoalServicer = (*mockGoalService)(nil)

// --- diagnostics ---

type mockDiagnosticService struct {
	checkFn    func(userID string) (*services.IntegrityReport, error)
	checkAllFn func() (*services.IntegrityReport, error)
}

func (m *mockDiagnosticService) CheckLedger(userID string) (*services.IntegrityReport, error) {
	if m.checkFn != nil {
		return m.checkFn(userID)
	}
	return &services.IntegrityReport{OK: true, Issues: []services.IntegrityIssue{}}, nil
}

func (m *mockDiagnosticService) CheckAllLedgers() (*services.IntegrityReport, error) {
	if m.checkAllFn != nil {
		return m.checkAllFn()
	}
	return &services.IntegrityReport{OK: true, Issues: []services.IntegrityIssue{}}, nil
}

var _ services.DiagnosticServicer = (*mockDiagnosticService)(nil)

// --- alerts ---

type mockAlerts struct {
	messages []string
}

func (m *mockAlerts) Send(_ context.Context, message string) map[notify.Channel]bool {
	m.messages = append(m.messages, message)
	return map[notify.Channel]bool{notify.ChannelEmail: true, notify.ChannelSMS: false}
}
