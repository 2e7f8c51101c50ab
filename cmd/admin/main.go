package main

import (
	"flag"
	"fmt"
	"os"

	"finora/internal/auth"
	"finora/internal/config"
	"finora/internal/database"
	"finora/internal/logger"
	"finora/internal/services"
	"finora/internal/validator"
)

const usage = `usage: admin <command> [flags]

commands:
  create-admin    -email E -name N -password P
  unblock         -email E [-admin]
  reset-password  -email E -password P`

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(os.Args[1:]); err != nil {
		logger.Get().Fatalf("Admin command failed: %v", err)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%s", usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	manager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer manager.Close()

	validator.Register()
	db := manager.DB()
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	users := services.NewUserService(db, hasher)
	audit := services.NewAuditService(db)

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "Administrator", "display name")
	password := fs.String("password", "", "new password")
	admin := fs.Bool("admin", false, "clear the administrator lockout instead of the user one")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("-email is required\n%s", usage)
	}

	log := logger.Get()
	switch args[0] {
	case "create-admin":
		user, err := users.CreateAdmin(*email, *name, *password)
		if err != nil {
			return err
		}
		audit.Log(user.ID, services.AuditCreateAdmin, "user", user.ID, "cli", map[string]interface{}{"email": user.Email})
		log.Infow("Administrator created", "user_id", user.ID, "email", user.Email)

	case "unblock":
		tokens, err := auth.NewTokenCodec(cfg.SecretKey, cfg.IsProduction(), cfg.TokenTTL)
		if err != nil {
			return err
		}
		authSvc := services.NewAuthService(db, hasher, tokens, nil)
		cleared, err := authSvc.Unblock(*email, *admin)
		if err != nil {
			return err
		}
		audit.Log("", services.AuditUnblockLogin, "login_attempt", *email, "cli",
			map[string]interface{}{"admin": *admin, "cleared": cleared})
		log.Infow("Login unblocked", "email", *email, "admin", *admin, "cleared", cleared)

	case "reset-password":
		if err := users.ResetPassword(*email, *password); err != nil {
			return err
		}
		log.Infow("Password reset", "email", *email)

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
	return nil
}
