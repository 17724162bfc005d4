package config

import (
	"time"

	"vision-relay-go/internal/domain/credential"
	"vision-relay-go/internal/domain/image"
	"vision-relay-go/internal/platform/storage"
)

// DefaultConfig returns the configuration used for any field the file omits.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            8080,
			TokenTTL:        24 * time.Hour,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "vision-relay.log",
		},
		Storage: StorageConfig{
			DSN: storage.DefaultDSN,
		},
		Credentials: CredentialsConfig{
			Store: StoreConfig{Type: credential.DriverSQLite},
			Order: []string{credential.PrimarySet, credential.FallbackSet},
		},
		Vision: VisionConfig{
			DefaultModel:   "gpt-4o-mini",
			DefaultPrompt:  "Describe this image in detail.",
			OutputField:    "analysis",
			MaxUploadBytes: image.MaxSizeBytes,
		},
		Events: EventsConfig{
			Workers: 4,
			Persist: true,
		},
	}
}
