package credential

import (
	"context"
	stderrors "errors"
	"strings"
)

// ErrNotConfigured is returned by Store.Get for unknown or empty sets.
var ErrNotConfigured = stderrors.New("credential set not configured")

// Credentials is one named provider credential set.
type Credentials struct {
	Name       string `json:"name"`
	ProviderID string `json:"provider"`
	APIKey     string `json:"apiKey"`
	BaseURL    string `json:"baseUrl,omitempty"`
}

// Configured reports whether the set carries an API key.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Masked returns a copy safe to show to callers.
func (c Credentials) Masked() Credentials {
	c.APIKey = MaskKey(c.APIKey)
	return c
}

// MaskKey keeps the first three and last four characters of long keys.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + "..." + key[len(key)-4:]
}

// Store persists named credential sets.
type Store interface {
	Put(ctx context.Context, creds Credentials) error
	Get(ctx context.Context, name string) (Credentials, error)
	Remove(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

func validate(creds Credentials) error {
	if strings.TrimSpace(creds.Name) == "" {
		return stderrors.New("credential name required")
	}
	return nil
}
