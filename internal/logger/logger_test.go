package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuild(t *testing.T) {
	t.Run("rejects_unknown_level", func(t *testing.T) {
		if _, err := build(Options{Env: "test", Level: "loud"}); err == nil {
			t.Fatal("expected error for unknown level")
		}
	})

	t.Run("writes_rotated_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "api.log")
		log, err := build(Options{Env: "production", Level: "info", File: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		log.Info("hello")
		_ = log.Sync()

		matches, err := filepath.Glob(path + ".*")
		if err != nil {
			t.Fatalf("glob failed: %v", err)
		}
		if len(matches) == 0 {
			t.Fatal("expected a rotated log file")
		}
		info, err := os.Stat(matches[0])
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Size() == 0 {
			t.Error("expected log file to contain the entry")
		}
	})
}

func TestGet(t *testing.T) {
	if Get() == nil {
		t.Fatal("expected a logger")
	}
}
