package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("expected default address :8080, got %s", cfg.Server.Address)
	}
	if cfg.Server.BasePath != "/admin" {
		t.Errorf("expected default base path /admin, got %s", cfg.Server.BasePath)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.Environment != "local" {
		t.Errorf("expected default environment local, got %s", cfg.Server.Environment)
	}
	if cfg.Tiers.Backend != BackendStatic {
		t.Errorf("expected static backend, got %s", cfg.Tiers.Backend)
	}
	if cfg.Tiers.RemoteTimeout != 10*time.Second {
		t.Errorf("unexpected remote timeout: %s", cfg.Tiers.RemoteTimeout)
	}
	if cfg.Tiers.Collection != defaultTiersCollection {
		t.Errorf("unexpected collection: %s", cfg.Tiers.Collection)
	}
	if cfg.Session.CookieName != defaultSessionCookieName {
		t.Errorf("unexpected session cookie name: %s", cfg.Session.CookieName)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"ADMIN_HTTP_ADDR":            ":9090",
		"ADMIN_BASE_PATH":            "/ops",
		"ADMIN_ENVIRONMENT":          "PROD",
		"ADMIN_READ_TIMEOUT":         "20s",
		"ADMIN_SESSION_HASH_KEY":     "hash",
		"ADMIN_SESSION_BLOCK_KEY":    "block",
		"FIREBASE_PROJECT_ID":        "delivery-prod",
		"TIERS_BACKEND":              "Firestore",
		"TIERS_REMOTE_TIMEOUT":       "3s",
		"TIERS_FIRESTORE_COLLECTION": "tiers",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("unexpected address %s", cfg.Server.Address)
	}
	if cfg.Server.BasePath != "/ops" {
		t.Errorf("unexpected base path %s", cfg.Server.BasePath)
	}
	if cfg.Server.Environment != "prod" {
		t.Errorf("expected lower-cased environment, got %s", cfg.Server.Environment)
	}
	if cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected read timeout %s", cfg.Server.ReadTimeout)
	}
	if cfg.Tiers.Backend != BackendFirestore {
		t.Errorf("expected firestore backend, got %s", cfg.Tiers.Backend)
	}
	if cfg.Tiers.RemoteTimeout != 3*time.Second {
		t.Errorf("unexpected remote timeout %s", cfg.Tiers.RemoteTimeout)
	}
	if cfg.Firestore.ProjectID != "delivery-prod" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	env := map[string]string{
		"TIERS_BACKEND":          "http",
		"ADMIN_SESSION_HASH_KEY": "hash-only",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := validation.Fields()
	if len(fields) != 2 || fields[0] != "Tiers.APIBaseURL" || fields[1] != "Session.HashKey/BlockKey" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	env := map[string]string{"TIERS_BACKEND": "redis"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := validation.Fields(); len(got) != 1 || got[0] != "Tiers.Backend" {
		t.Fatalf("unexpected fields %v", got)
	}
}

func TestLoadMergesSources(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "TIERS_BACKEND=postgres\nDATABASE_URL=\"postgres://dot/tiers\"\nADMIN_BASE_PATH=/dot\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	t.Setenv("ADMIN_BASE_PATH", "/os")
	t.Setenv("ADMIN_HTTP_ADDR", ":7000")

	overrides := map[string]string{
		"ADMIN_HTTP_ADDR": ":7100",
	}

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithEnvMap(overrides))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Postgres.URL != "postgres://dot/tiers" {
		t.Fatalf("expected dotenv database url, got %s", cfg.Postgres.URL)
	}
	if cfg.Server.BasePath != "/os" {
		t.Fatalf("expected system env base path, got %s", cfg.Server.BasePath)
	}
	if cfg.Server.Address != ":7100" {
		t.Fatalf("expected override address, got %s", cfg.Server.Address)
	}
}
