// Package server assembles services, handlers and middleware into the HTTP
// router.
package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"finora/internal/auth"
	"finora/internal/config"
	_ "finora/internal/docs" // swagger docs
	"finora/internal/handlers"
	"finora/internal/middleware"
	"finora/internal/notify"
	"finora/internal/ratelimit"
	"finora/internal/services"
)

// Options carries the runtime collaborators the router does not build itself.
type Options struct {
	// Limiter throttles the sensitive auth routes. Nil builds an in-memory
	// limiter from the config whose cleanup runs for the process lifetime.
	Limiter *ratelimit.Limiter
	// Alerter receives admin login alerts. Nil logs alerts only.
	Alerter *notify.Alerter
	// Health probes the database. Nil pings db directly.
	Health handlers.Pinger
}

// Services is the set of domain services behind the handlers.
type Services struct {
	Users         services.UserServicer
	Auth          services.AuthServicer
	Subscriptions services.SubscriptionServicer
	Categories    services.CategoryServicer
	PaymentMethod services.PaymentMethodServicer
	Entries       services.EntryServicer
	Installments  services.InstallmentServicer
	Recurring     services.RecurringServicer
	Goals         services.GoalServicer
	Diagnostics   services.DiagnosticServicer
	Audit         services.AuditServicer
}

// NewServices builds every service over db.
func NewServices(cfg *config.Config, db *gorm.DB, alerter *notify.Alerter) (*Services, error) {
	tokens, err := auth.NewTokenCodec(cfg.SecretKey, cfg.IsProduction(), cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to build token codec: %w", err)
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	return &Services{
		Users:         services.NewUserService(db, hasher),
		Auth:          services.NewAuthService(db, hasher, tokens, alerter),
		Subscriptions: services.NewSubscriptionService(db, cfg.TrialDays),
		Categories:    services.NewCategoryService(db),
		PaymentMethod: services.NewPaymentMethodService(db),
		Entries:       services.NewEntryService(db),
		Installments:  services.NewInstallmentService(db),
		Recurring:     services.NewRecurringService(db),
		Goals:         services.NewGoalService(db),
		Diagnostics:   services.NewDiagnosticService(db),
		Audit:         services.NewAuditService(db),
	}, nil
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg *config.Config, db *gorm.DB, opts Options) (*gin.Engine, error) {
	svc, err := NewServices(cfg, db, opts.Alerter)
	if err != nil {
		return nil, err
	}

	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.NewMemoryStore(0, 0), ratelimit.Config{
			Max:    cfg.RateLimitMax,
			Window: cfg.RateLimitWindow,
		})
	}
	health := opts.Health
	if health == nil {
		health = gormPinger{db: db}
	}
	alerts := opts.Alerter
	if alerts == nil {
		alerts = notify.NewAlerter(nil, nil)
	}

	middleware.SetProduction(cfg.IsProduction())

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	middleware.NewPipeline(middleware.PipelineConfig{
		Production:      cfg.IsProduction(),
		AllowedOrigins:  cfg.AllowedOrigins,
		Limiter:         limiter,
		Auth:            svc.Auth,
		Billing:         svc.Subscriptions,
		BillingFailOpen: cfg.BillingFailOpen,
	}).Install(router)
	router.Use(middleware.ErrorHandler())

	registerRoutes(router, cfg, svc, health, alerts)
	return router, nil
}

func registerRoutes(router *gin.Engine, cfg *config.Config, svc *Services, health handlers.Pinger, alerts handlers.AlertSender) {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Auth, svc.Audit, cfg.IsProduction())
	adminHandler := handlers.NewAdminHandler(svc.Users, svc.Auth, svc.Subscriptions, alerts, svc.Audit)
	billingHandler := handlers.NewBillingHandler(svc.Subscriptions, svc.Users, svc.Audit)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories)
	paymentMethodHandler := handlers.NewPaymentMethodHandler(svc.PaymentMethod)
	entryHandler := handlers.NewEntryHandler(svc.Entries, svc.Audit)
	installmentHandler := handlers.NewInstallmentHandler(svc.Installments, svc.Audit)
	recurringHandler := handlers.NewRecurringHandler(svc.Recurring, svc.Audit)
	goalHandler := handlers.NewGoalHandler(svc.Goals, svc.Audit)
	diagnosticHandler := handlers.NewDiagnosticHandler(svc.Diagnostics)
	healthHandler := handlers.NewHealthHandler(health)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoints
	router.GET("/api/health", healthHandler.Health)
	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	requireAuth := middleware.AuthMiddleware(svc.Auth)

	// Public auth routes
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/admin/login", authHandler.AdminLogin)
	authGroup.POST("/logout", authHandler.Logout)

	// Session routes
	session := authGroup.Group("", requireAuth)
	session.GET("/me", authHandler.GetProfile)
	session.PATCH("/me", authHandler.UpdateProfile)
	session.POST("/change-password", authHandler.ChangePassword)

	// Administrator routes
	admin := v1.Group("/admin", requireAuth, middleware.RequireAdmin(), middleware.AdminIPAllowlist(cfg.AdminAllowedIPs))
	admin.POST("/password", adminHandler.ChangePassword)
	admin.GET("/users", adminHandler.ListUsers)
	admin.POST("/users", adminHandler.CreateAdmin)
	admin.POST("/users/:id/deactivate", adminHandler.DeactivateUser)
	admin.GET("/login-attempts", adminHandler.LoginAttempts)
	admin.POST("/login-attempts/unblock", adminHandler.UnblockLogin)
	admin.GET("/billing/stats", adminHandler.BillingStats)
	admin.POST("/alerts/test", adminHandler.TestAlert)
	admin.GET("/diagnostics", diagnosticHandler.CheckAllLedgers)

	// Billing routes
	billing := v1.Group("/billing")
	billing.POST("/webhook", middleware.WebhookKeyAuth(cfg.BillingWebhookKey), billingHandler.Webhook)
	billingSession := billing.Group("", requireAuth)
	billingSession.GET("/subscription", billingHandler.GetSubscription)
	billingSession.POST("/subscription/activate", billingHandler.Activate)
	billingSession.POST("/subscription/cancel", billingHandler.Cancel)
	billingSession.GET("/payments", billingHandler.ListPayments)
	billingSession.POST("/payments", billingHandler.RecordPayment)

	// Ledger routes
	protected := v1.Group("", requireAuth)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	categories.POST("/:id/subcategories", categoryHandler.CreateSubcategory)
	categories.GET("/:id/subcategories", categoryHandler.GetSubcategories)
	protected.PATCH("/subcategories/:id", categoryHandler.SetSubcategoryActive)

	paymentMethods := protected.Group("/payment-methods")
	paymentMethods.POST("", paymentMethodHandler.CreatePaymentMethod)
	paymentMethods.GET("", paymentMethodHandler.GetPaymentMethods)
	paymentMethods.GET("/:id", paymentMethodHandler.GetPaymentMethodByID)
	paymentMethods.PUT("/:id", paymentMethodHandler.UpdatePaymentMethod)
	paymentMethods.POST("/:id/toggle", paymentMethodHandler.TogglePaymentMethod)
	paymentMethods.DELETE("/:id", paymentMethodHandler.DeletePaymentMethod)

	entries := protected.Group("/entries")
	entries.POST("", entryHandler.CreateEntry)
	entries.GET("", entryHandler.GetUserEntries)
	entries.GET("/:id", entryHandler.GetEntryByID)
	entries.PUT("/:id", entryHandler.UpdateEntry)
	entries.DELETE("/:id", entryHandler.DeleteEntry)
	entries.GET("/:id/installments", entryHandler.GetEntryInstallments)

	installments := protected.Group("/installments")
	installments.GET("", installmentHandler.GetUserInstallments)
	installments.GET("/:id", installmentHandler.GetInstallmentByID)
	installments.PUT("/:id", installmentHandler.RescheduleInstallment)
	installments.PATCH("/:id/pay", installmentHandler.PayInstallment)

	recurring := protected.Group("/recurring")
	recurring.POST("", recurringHandler.CreateRecurring)
	recurring.GET("", recurringHandler.GetUserRecurring)
	recurring.GET("/:id", recurringHandler.GetRecurringByID)
	recurring.PUT("/:id", recurringHandler.UpdateRecurring)
	recurring.POST("/:id/toggle", recurringHandler.ToggleRecurring)
	recurring.DELETE("/:id", recurringHandler.DeleteRecurring)
	recurring.POST("/:id/generate", recurringHandler.GenerateRecurring)

	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetUserGoals)
	goals.GET("/progress/:year/:month", goalHandler.GetMonthProgress)
	goals.GET("/:id", goalHandler.GetGoalByID)
	goals.PUT("/:id", goalHandler.UpdateGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)

	protected.GET("/diagnostics", diagnosticHandler.CheckLedger)
}

type gormPinger struct {
	db *gorm.DB
}

func (p gormPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
