package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProjectConfig(t *testing.T) {
	t.Run("valid config loads with defaults", func(t *testing.T) {
		path := writeTempConfig(t, "project: table-read\nversion: 1\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Project != "table-read" {
			t.Fatalf("expected project name, got %q", cfg.Project)
		}
		if cfg.Memory.RecentScenes != 4 {
			t.Fatalf("expected default recent_scenes 4, got %d", cfg.Memory.RecentScenes)
		}
		if cfg.Store.Backend != "sqlite" || cfg.Store.DSN != "tableread.db" {
			t.Fatalf("expected sqlite defaults, got %s %s", cfg.Store.Backend, cfg.Store.DSN)
		}
		if cfg.Provider.Model == "" || cfg.Provider.MaxRetries == 0 {
			t.Fatalf("provider defaults not applied: %+v", cfg.Provider)
		}
	})

	t.Run("negative max_digests means uncapped", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nmemory:\n  max_digests: -1\n")
		cfg, err := LoadProjectConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Memory.MaxDigests != -1 {
			t.Fatalf("expected -1 to pass through, got %d", cfg.Memory.MaxDigests)
		}
	})

	t.Run("missing project name", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 2\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown store backend", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstore:\n  backend: mysql\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nstore:\n  backend: postgres\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("duplicate reviewer ids", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nreviewers: [horror_fan, Horror_Fan]\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("out of range question importance", func(t *testing.T) {
		path := writeTempConfig(t, "project: test\nversion: 1\nmemory:\n  min_question_importance: 1.5\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "project: [\n")
		if _, err := LoadProjectConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func TestLoadRoster(t *testing.T) {
	t.Run("valid roster loads", func(t *testing.T) {
		path := writeTempFile(t, "roster.yaml", "version: 1\nreviewers:\n  - id: horror_fan\n    name: Mel\n    persona: lives for dread\n")
		roster, err := LoadRoster(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok := roster.ProfileByID("HORROR_FAN"); !ok {
			t.Fatalf("lookup should be case-insensitive")
		}
	})

	t.Run("missing persona", func(t *testing.T) {
		path := writeTempFile(t, "roster.yaml", "version: 1\nreviewers:\n  - id: horror_fan\n")
		if _, err := LoadRoster(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("duplicate ids", func(t *testing.T) {
		path := writeTempFile(t, "roster.yaml", "version: 1\nreviewers:\n  - id: a\n    persona: x\n  - id: A\n    persona: y\n")
		if _, err := LoadRoster(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("empty roster", func(t *testing.T) {
		path := writeTempFile(t, "roster.yaml", "version: 1\nreviewers: []\n")
		if _, err := LoadRoster(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	return writeTempFile(t, "config.yaml", contents)
}

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}
