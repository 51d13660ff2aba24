package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Environment != "local" || !cfg.IsLocal() {
		t.Errorf("expected local environment, got %q", cfg.Environment)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageBackendMemory {
		t.Errorf("expected memory backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Simulation.AuthDelay != time.Second {
		t.Errorf("unexpected auth delay %s", cfg.Simulation.AuthDelay)
	}
	if cfg.Simulation.OrderDelay != 2*time.Second {
		t.Errorf("unexpected order delay %s", cfg.Simulation.OrderDelay)
	}
	if cfg.Catalog.PageSize != 12 {
		t.Errorf("unexpected page size %d", cfg.Catalog.PageSize)
	}
	if cfg.Session.CookieName != defaultCookieName {
		t.Errorf("unexpected cookie name %s", cfg.Session.CookieName)
	}
	if len(cfg.Notifications.KafkaBrokers) != 0 {
		t.Errorf("expected no kafka brokers, got %v", cfg.Notifications.KafkaBrokers)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_ENVIRONMENT":          "prod",
		"PORT":                            "9090",
		"STOREFRONT_STORAGE_BACKEND":      "Redis",
		"STOREFRONT_REDIS_ADDR":           "redis:6379",
		"STOREFRONT_REDIS_PASSWORD":       "sm://redis/password",
		"STOREFRONT_SESSION_HASH_KEY":     "secret://session/hash",
		"STOREFRONT_SESSION_TOKEN_SECRET": "secret://session/token",
		"STOREFRONT_KAFKA_BROKERS":        "k1:9092, k2:9092",
		"STOREFRONT_SIMULATED_AUTH_DELAY": "250ms",
	}
	resolved := map[string]string{
		"secret://redis/password": "hunter2",
		"secret://session/hash":   strings.Repeat("h", 32),
		"secret://session/token":  strings.Repeat("t", 32),
	}
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		value, ok := resolved[ref]
		if !ok {
			return "", errors.New("unknown ref")
		}
		return value, nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected PORT fallback, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageBackendRedis {
		t.Errorf("expected backend to be lower-cased, got %s", cfg.Storage.Backend)
	}
	if cfg.Redis.Password != "hunter2" {
		t.Errorf("expected resolved redis password, got %q", cfg.Redis.Password)
	}
	if cfg.Session.HashKey != strings.Repeat("h", 32) {
		t.Errorf("expected resolved hash key")
	}
	if got := cfg.Notifications.KafkaBrokers; len(got) != 2 || got[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", got)
	}
	if cfg.Simulation.AuthDelay != 250*time.Millisecond {
		t.Errorf("unexpected auth delay %s", cfg.Simulation.AuthDelay)
	}
}

func TestLoadSecretResolutionFailure(t *testing.T) {
	env := map[string]string{"STOREFRONT_SESSION_HASH_KEY": "secret://missing"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Fatalf("unexpected ref %q", secretErr.Ref)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_ENVIRONMENT":           "prod",
		"STOREFRONT_STORAGE_BACKEND":       "firestore",
		"STOREFRONT_CATALOG_PAGE_SIZE":     "0",
		"STOREFRONT_SESSION_BLOCK_KEY":     "short",
		"STOREFRONT_SIMULATED_ORDER_DELAY": "-1s",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{
		"Firestore.ProjectID":   true,
		"Session.HashKey":       true,
		"Session.TokenSecret":   true,
		"Session.BlockKey":      true,
		"Simulation.OrderDelay": true,
		"Catalog.PageSize":      true,
	}
	fields := validation.Fields()
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for _, f := range fields {
		if !want[f] {
			t.Errorf("unexpected invalid field %s", f)
		}
	}
}

func TestLoadDotEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nexport STOREFRONT_SERVER_PORT=7070\nLOG_LEVEL='debug'\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(path),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"LOG_LEVEL": "warn"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv, got %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env map to win over dotenv, got %s", cfg.Logging.Level)
	}

	value, ok, err := Lookup("STOREFRONT_SERVER_PORT", WithEnvFile(path), WithoutSystemEnv())
	if err != nil || !ok || value != "7070" {
		t.Fatalf("Lookup = %q, %v, %v", value, ok, err)
	}
}
