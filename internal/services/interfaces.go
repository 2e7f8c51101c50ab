package services

import (
	"time"

	"github.com/shopspring/decimal"

	"finora/internal/models"
	"finora/internal/pagination"
)

// UserServicer defines the contract for account management.
type UserServicer interface {
	Register(email, name, password string) (*models.User, error)
	GetUser(userID string) (*models.User, error)
	UpdateProfile(userID string, name, email *string) (*models.User, error)
	ChangePassword(userID, current, newPassword, confirm string) error
	ChangeAdminPassword(userID, current, newPassword, confirm string) error
	CreateAdmin(email, name, password string) (*models.User, error)
	ResetPassword(email, newPassword string) error
	ListUsers(active *bool, page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	Deactivate(actorID, userID string) error
}

// LoginRequest carries one login call.
type LoginRequest struct {
	Email     string
	Password  string
	Admin     bool
	IP        string
	UserAgent string
}

// LoginResult is a successful login.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AuthServicer defines the contract for sessions and login protection.
type AuthServicer interface {
	Login(req LoginRequest) (*LoginResult, error)
	Authenticate(token string) (*models.User, error)
	IssueToken(user *models.User) (*LoginResult, error)
	TokenTTL() time.Duration
	Unblock(email string, admin bool) (int64, error)
	RecentAttempts(email string, limit int) ([]models.LoginAttempt, error)
}

// PaymentInput is a subscription payment to record.
type PaymentInput struct {
	Amount                decimal.Decimal
	Reference             string
	Method                models.BillingMethod
	ExternalTransactionID *string
}

// BillingStats summarizes subscriptions for administrators.
type BillingStats struct {
	Users          int64                               `json:"users"`
	ActiveLastWeek int64                               `json:"active_last_week"`
	UpToDate       int64                               `json:"up_to_date"`
	Overdue        int64                               `json:"overdue"`
	ByStatus       map[models.SubscriptionStatus]int64 `json:"by_status"`
}

// SubscriptionServicer defines the contract for the billing state machine.
type SubscriptionServicer interface {
	Ensure(userID string) (*models.Subscription, error)
	Get(userID string) (*models.Subscription, error)
	CheckWriteAccess(userID string) error
	RecordPayment(userID string, in PaymentInput) (*models.Payment, *models.Subscription, error)
	Activate(userID string, monthlyAmount *decimal.Decimal) (*models.Subscription, error)
	Cancel(userID string) (*models.Subscription, error)
	ListPayments(userID string, limit int) ([]models.Payment, error)
	Stats() (*BillingStats, error)
}

// CategoryServicer defines the contract for categories and subcategories.
type CategoryServicer interface {
	CreateCategory(userID, name string, kind models.EntryKind, description string) (*models.Category, error)
	GetUserCategories(userID string, kind *models.EntryKind, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
	CreateSubcategory(userID, categoryID, name string) (*models.Subcategory, error)
	GetSubcategories(userID, categoryID string, activeOnly bool) ([]models.Subcategory, error)
	SetSubcategoryActive(userID, subcategoryID string, active bool) (*models.Subcategory, error)
}

// PaymentMethodInput holds the editable fields of a payment method.
type PaymentMethodInput struct {
	Name        string
	Type        models.PaymentMethodType
	Bank        string
	CreditLimit *decimal.Decimal
	IsActive    bool
	Note        string
}

// PaymentMethodServicer defines the contract for payment methods.
type PaymentMethodServicer interface {
	CreatePaymentMethod(userID string, in PaymentMethodInput) (*models.PaymentMethod, error)
	GetPaymentMethods(userID string, active *bool) ([]models.PaymentMethod, error)
	GetPaymentMethodByID(userID, id string) (*models.PaymentMethod, error)
	UpdatePaymentMethod(userID, id string, in PaymentMethodInput) (*models.PaymentMethod, error)
	TogglePaymentMethod(userID, id string) (*models.PaymentMethod, error)
	DeletePaymentMethod(userID, id string) error
}

// EntryInput holds the fields an entry is created or regenerated from.
type EntryInput struct {
	Kind             models.EntryKind
	EntryDate        time.Time
	CategoryID       *string
	SubcategoryID    *string
	Counterparty     string
	TotalAmount      decimal.Decimal
	FirstDueDate     time.Time
	InstallmentCount int
	Note             string
}

// EntryFilter holds optional filters for listing entries.
type EntryFilter struct {
	Kind       *models.EntryKind
	CategoryID *string
	FromDate   *time.Time
	ToDate     *time.Time
}

// EntryServicer defines the contract for financial entries.
type EntryServicer interface {
	CreateEntry(userID string, in EntryInput) (*models.FinancialEntry, error)
	GetEntryByID(userID, entryID string) (*models.FinancialEntry, error)
	GetUserEntries(userID string, filter EntryFilter, page pagination.PageRequest) (*pagination.PageResponse[models.FinancialEntry], error)
	UpdateEntry(userID, entryID string, in EntryInput) (*models.FinancialEntry, error)
	DeleteEntry(userID, entryID string) error
	GetEntryInstallments(userID, entryID string) ([]models.Installment, error)
}

// InstallmentFilter holds optional filters for listing installments.
type InstallmentFilter struct {
	Paid     *bool
	FromDate *time.Time
	ToDate   *time.Time
}

// PaymentUpdate marks an installment paid or unpaid.
type PaymentUpdate struct {
	Paid            bool
	PaidAt          *time.Time
	PaidAmount      *decimal.Decimal
	PaymentMethodID *string
	PaymentNote     *string
}

// InstallmentServicer defines the contract for installment reconciliation.
type InstallmentServicer interface {
	GetUserInstallments(userID string, filter InstallmentFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Installment], error)
	GetInstallmentByID(userID, id string) (*models.Installment, error)
	SetPaid(userID, id string, upd PaymentUpdate) (*models.Installment, error)
	Reschedule(userID, id string, dueDate time.Time, amount decimal.Decimal) (*models.Installment, error)
}

// RecurringInput holds the fields of a recurring entry template.
type RecurringInput struct {
	Kind             models.EntryKind
	CategoryID       *string
	SubcategoryID    *string
	Counterparty     string
	TotalAmount      decimal.Decimal
	DueDay           int
	InstallmentCount int
	Frequency        models.RecurrenceFrequency
	StartDate        time.Time
	Note             string
}

// RecurringServicer defines the contract for recurring entry templates.
type RecurringServicer interface {
	CreateRecurring(userID string, in RecurringInput) (*models.RecurringEntry, error)
	GetUserRecurring(userID string) ([]models.RecurringEntry, error)
	GetRecurringByID(userID, id string) (*models.RecurringEntry, error)
	UpdateRecurring(userID, id string, in RecurringInput) (*models.RecurringEntry, error)
	ToggleRecurring(userID, id string) (*models.RecurringEntry, error)
	DeleteRecurring(userID, id string) error
	Generate(userID, id string) (*models.FinancialEntry, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}

// GoalInput holds the editable fields of a monthly goal.
type GoalInput struct {
	Year         int
	Month        int
	CategoryID   *string
	TargetAmount decimal.Decimal
	Description  string
}

// GoalFilter holds optional filters for listing goals.
type GoalFilter struct {
	Year       *int
	Month      *int
	CategoryID *string
}

// GoalProgress compares one goal with the installments of its month.
// Scheduled sums installments due in the month, Realized sums payments
// made in it.
type GoalProgress struct {
	GoalID     string            `json:"goal_id"`
	CategoryID *string           `json:"category_id,omitempty"`
	Target     decimal.Decimal   `json:"target" swaggertype:"string"`
	Scheduled  decimal.Decimal   `json:"scheduled" swaggertype:"string"`
	Realized   decimal.Decimal   `json:"realized" swaggertype:"string"`
	Percent    decimal.Decimal   `json:"percent" swaggertype:"string"`
	Status     models.GoalStatus `json:"status"`
}

// MonthProgress aggregates every goal of one month.
type MonthProgress struct {
	Year     int               `json:"year"`
	Month    int               `json:"month"`
	HasGoals bool              `json:"has_goals"`
	Target   decimal.Decimal   `json:"target" swaggertype:"string"`
	Realized decimal.Decimal   `json:"realized" swaggertype:"string"`
	Percent  decimal.Decimal   `json:"percent" swaggertype:"string"`
	Status   models.GoalStatus `json:"status"`
	Goals    []GoalProgress    `json:"goals"`
}

// GoalServicer defines the contract for monthly goals.
type GoalServicer interface {
	CreateGoal(userID string, in GoalInput) (*models.Goal, error)
	GetUserGoals(userID string, filter GoalFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(userID, id string) (*models.Goal, error)
	UpdateGoal(userID, id string, in GoalInput) (*models.Goal, error)
	DeleteGoal(userID, id string) error
	GetMonthProgress(userID string, year, month int) (*MonthProgress, error)
}

// IntegrityIssue groups the rows that break one ledger rule.
type IntegrityIssue struct {
	Kind     string   `json:"kind"`
	Severity string   `json:"severity"`
	Count    int      `json:"count"`
	IDs      []string `json:"ids"`
}

// IntegrityStats counts the rows an integrity check looked at.
type IntegrityStats struct {
	Entries             int `json:"entries"`
	Installments        int `json:"installments"`
	PaidInstallments    int `json:"paid_installments"`
	PendingInstallments int `json:"pending_installments"`
}

// IntegrityReport is the outcome of a ledger integrity check.
type IntegrityReport struct {
	CheckedAt time.Time        `json:"checked_at"`
	OK        bool             `json:"ok"`
	Issues    []IntegrityIssue `json:"issues"`
	Stats     IntegrityStats   `json:"stats"`
}

// DiagnosticServicer defines the contract for ledger integrity checks.
type DiagnosticServicer interface {
	CheckLedger(userID string) (*IntegrityReport, error)
	CheckAllLedgers() (*IntegrityReport, error)
}
