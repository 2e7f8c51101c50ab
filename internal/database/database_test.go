package database

import (
	"path/filepath"
	"strings"
	"testing"

	"finora/internal/config"
	"finora/internal/models"
)

func TestConfig(t *testing.T) {
	cfg := NewConfig(&config.Config{
		DBDriver: DriverPostgres, DBHost: "db", DBPort: "5432", DBUser: "u",
		DBPassword: "p", DBName: "finora", DBSSLMode: "disable", DBPath: "x.db",
	})

	if !strings.Contains(cfg.DSN(), "host=db") || !strings.Contains(cfg.DSN(), "dbname=finora") {
		t.Errorf("unexpected postgres dsn: %s", cfg.DSN())
	}
	if cfg.MigrateURL() != "postgres://u:p@db:5432/finora?sslmode=disable" {
		t.Errorf("unexpected migrate url: %s", cfg.MigrateURL())
	}

	cfg.Driver = DriverSQLite
	if cfg.DSN() != "x.db" {
		t.Errorf("expected sqlite path, got %s", cfg.DSN())
	}
}

func TestNewManager(t *testing.T) {
	t.Run("sqlite_auto_migrates", func(t *testing.T) {
		m, err := NewManager(&Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "finora.db")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer m.Close()

		if err := m.Migrate(); err != nil {
			t.Fatalf("migrate failed: %v", err)
		}
		for _, model := range []interface{}{&models.User{}, &models.Installment{}, &models.Subscription{}} {
			if !m.DB().Migrator().HasTable(model) {
				t.Errorf("expected table for %T", model)
			}
		}
	})

	t.Run("rejects_unknown_driver", func(t *testing.T) {
		if _, err := NewManager(&Config{Driver: "oracle"}); err == nil {
			t.Fatal("expected error")
		}
	})
}
