package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vision-relay-go/internal/platform/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoader_Load(t *testing.T) {
	t.Setenv("VISION_KEY", "sk-from-env")
	path := writeConfig(t, `
server:
  ip: "127.0.0.1"
  port: 9090
  token_ttl: 2h
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
credentials:
  store:
    type: memory
  sets:
    - name: visionApi
      provider: anthropic
      api_key: ${VISION_KEY}
vision:
  default_model: claude-sonnet-4
`)

	res, err := NewLoader().WithDotEnv(false).WithPath(path).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if res.Path != path {
		t.Errorf("expected path %s, got %s", path, res.Path)
	}
	if cfg.Server.IP != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("unexpected server address %s", cfg.Addr())
	}
	if cfg.Server.TokenTTL != 2*time.Hour {
		t.Errorf("expected token ttl 2h, got %s", cfg.Server.TokenTTL)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("expected log level DEBUG, got %s", cfg.Log.Level)
	}
	if cfg.Log.File != "vision-relay.log" {
		t.Errorf("expected default log file, got %s", cfg.Log.File)
	}
	if cfg.Vision.OutputField != "analysis" {
		t.Errorf("expected default output field, got %s", cfg.Vision.OutputField)
	}

	sets := cfg.SeedSets()
	if len(sets) != 1 || sets[0].APIKey != "sk-from-env" || sets[0].ProviderID != "anthropic" {
		t.Errorf("unexpected seed sets %+v", sets)
	}
	if got := cfg.CredentialStore().Driver; got != "memory" {
		t.Errorf("expected memory driver, got %s", got)
	}
}

func TestLoader_EnvPath(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 7000\n")
	t.Setenv(EnvConfigPath, path)

	res, err := NewLoader().WithDotEnv(false).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if res.Config.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", res.Config.Server.Port)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Chdir(t.TempDir())

	res, err := NewLoader().WithDotEnv(false).Load()
	if err != nil {
		t.Fatalf("defaults should load without a file: %v", err)
	}
	if res.Path != "" {
		t.Errorf("expected empty path, got %s", res.Path)
	}

	_, err = NewLoader().WithDotEnv(false).WithPath("does-not-exist.yaml").Load()
	if !errors.IsKind(err, errors.KindConfig) {
		t.Fatalf("expected config error for pinned missing file, got %v", err)
	}
}

func TestLoader_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("RELAY_TEST_PORT=7100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("RELAY_TEST_PORT") })
	path := writeConfig(t, "server:\n  port: ${RELAY_TEST_PORT}\n")

	res, err := NewLoader().WithDotEnv(true, envFile).WithPath(path).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if res.Config.Server.Port != 7100 {
		t.Errorf("expected port from .env, got %d", res.Config.Server.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "invalid server port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Credentials.Store.Type = "etcd" }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Credentials.Store.Type = "redis" }, wantErr: true},
		{
			name: "redis with addr",
			mutate: func(c *Config) {
				c.Credentials.Store.Type = "redis"
				c.Credentials.Store.Redis.Addr = "localhost:6379"
			},
		},
		{name: "empty order", mutate: func(c *Config) { c.Credentials.Order = nil }, wantErr: true},
		{
			name: "duplicate sets",
			mutate: func(c *Config) {
				c.Credentials.Sets = []CredentialSet{{Name: "a"}, {Name: "a"}}
			},
			wantErr: true,
		},
		{name: "unnamed set", mutate: func(c *Config) { c.Credentials.Sets = []CredentialSet{{}} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
