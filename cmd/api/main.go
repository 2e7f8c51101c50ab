package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"finora/internal/config"
	"finora/internal/database"
	"finora/internal/logger"
	"finora/internal/notify"
	"finora/internal/ratelimit"
	"finora/internal/server"
	"finora/internal/validator"
)

// @title           Finora API
// @version         1.0
// @description     Finora is a multi-tenant personal finance tracker for installment-based expenses and income, with subscription billing.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Shared key for payment provider webhooks.

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(os.Getenv("ENV"))
		logger.Get().Fatalf("Failed to load configuration: %v", err)
	}

	logger.InitWithOptions(logger.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	alerter, closeAlerts, err := newAlerter(cfg)
	if err != nil {
		return err
	}
	defer closeAlerts()

	store := ratelimit.NewMemoryStore(0, 0)
	defer store.Stop()
	limiter := ratelimit.NewLimiter(store, ratelimit.Config{Max: cfg.RateLimitMax, Window: cfg.RateLimitWindow})

	router, err := server.NewRouter(cfg, dbManager.DB(), server.Options{
		Limiter: limiter,
		Alerter: alerter,
		Health:  dbManager,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting Finora backend server on port %s", cfg.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	alerter.Wait()
	return err
}

// newAlerter publishes admin alerts to the broker when one is configured and
// falls back to logging them.
func newAlerter(cfg *config.Config) (*notify.Alerter, func(), error) {
	recipients := notify.Recipients{
		notify.ChannelSMS:      cfg.AlertSMSTo,
		notify.ChannelWhatsApp: cfg.AlertWhatsApp,
		notify.ChannelEmail:    cfg.AlertEmailTo,
	}
	if cfg.AMQPURL == "" {
		return notify.NewAlerter(notify.LogSender{}, recipients), func() {}, nil
	}

	sender, err := notify.NewAMQPSender(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect alert broker: %w", err)
	}
	closeSender := func() {
		if err := sender.Close(); err != nil {
			logger.Get().Errorw("Failed to close alert broker connection", "error", err)
		}
	}
	return notify.NewAlerter(sender, recipients), closeSender, nil
}
