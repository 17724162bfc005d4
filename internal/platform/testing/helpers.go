package testing

import (
	"io"
	"testing"

	"vision-relay-go/internal/domain/credential"
	"vision-relay-go/internal/platform/config"
	"vision-relay-go/internal/platform/logging"
)

// SetupTestConfig returns a config that keeps every resource in memory or
// under t.TempDir.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.Port = 18080
	cfg.Log = config.LogConfig{
		Level: "DEBUG",
		Dir:   t.TempDir(),
		File:  "test.log",
	}
	cfg.Storage.DSN = "file::memory:?cache=shared"
	cfg.Credentials.Store.Type = credential.DriverMemory
	cfg.Events.Persist = false
	return cfg
}

// SetupTestLogger writes to a temporary directory and discards console output.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	logger, err := logging.New(logging.Config{
		Level:    "DEBUG",
		Dir:      t.TempDir(),
		Filename: "test.log",
		Console:  io.Discard,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

// SeedCredentials returns a memory store holding sets.
func SeedCredentials(t *testing.T, sets ...credential.Credentials) credential.Store {
	t.Helper()

	store := credential.NewMemory()
	for _, c := range sets {
		if err := store.Put(t.Context(), c); err != nil {
			t.Fatalf("failed to seed credential set %s: %v", c.Name, err)
		}
	}
	return store
}
