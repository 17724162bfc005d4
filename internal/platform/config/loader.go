package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"vision-relay-go/internal/domain/credential"
	"vision-relay-go/internal/platform/errors"
)

const (
	// EnvConfigPath overrides the config file location.
	EnvConfigPath     = "VISION_RELAY_CONFIG"
	DefaultConfigPath = "config.yaml"
)

// Loader reads the YAML config file on top of DefaultConfig.
type Loader struct {
	useDotEnv bool
	envFiles  []string
	path      string
}

func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool, files ...string) *Loader {
	l.useDotEnv = enabled
	l.envFiles = files
	return l
}

// WithPath pins the config file. A pinned file must exist.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path. Path is empty
// when only defaults were used.
type Result struct {
	Config *Config
	Path   string
}

func (l *Loader) Load() (*Result, error) {
	const op = "config.load"

	if l.useDotEnv {
		// A missing .env is normal; the process environment is used as is.
		_ = godotenv.Load(l.envFiles...)
	}

	path, required := l.path, l.path != ""
	if !required {
		if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
			path, required = env, true
		} else {
			path = DefaultConfigPath
		}
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, op, "parse "+path, err)
		}
	case stderrors.Is(err, fs.ErrNotExist) && !required:
		path = ""
	default:
		return nil, errors.Wrap(errors.KindConfig, op, "read "+path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Path: path}, nil
}

// Parse expands ${VAR} references in data and decodes it into cfg.
func Parse(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	return yaml.Unmarshal([]byte(expanded), cfg)
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	const op = "config.validate"

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf(errors.KindConfig, op, "server.port %d out of range", c.Server.Port)
	}
	switch c.Credentials.Store.Type {
	case credential.DriverMemory, credential.DriverSQLite:
	case credential.DriverRedis:
		if strings.TrimSpace(c.Credentials.Store.Redis.Addr) == "" {
			return errors.New(errors.KindConfig, op, "credentials.store.redis.addr is required for the redis store")
		}
	default:
		return errors.Newf(errors.KindConfig, op, "credentials.store.type %q is not one of memory, sqlite, redis",
			c.Credentials.Store.Type)
	}
	if len(c.Credentials.Order) == 0 {
		return errors.New(errors.KindConfig, op, "credentials.order must name at least one set")
	}
	seen := make(map[string]bool, len(c.Credentials.Sets))
	for i, set := range c.Credentials.Sets {
		name := strings.TrimSpace(set.Name)
		if name == "" {
			return errors.Newf(errors.KindConfig, op, "credentials.sets[%d].name is required", i)
		}
		if seen[name] {
			return errors.Newf(errors.KindConfig, op, "credentials.sets[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
	}
	if c.Vision.MaxUploadBytes < 0 {
		return errors.New(errors.KindConfig, op, "vision.max_upload_bytes must not be negative")
	}
	if c.Events.Workers < 0 {
		return errors.New(errors.KindConfig, op, "events.workers must not be negative")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.IP, c.Server.Port)
}

// CredentialStore maps the store section onto credential.Config.
func (c *Config) CredentialStore() credential.Config {
	cfg := credential.Config{Driver: c.Credentials.Store.Type}
	if c.Credentials.Store.Type == credential.DriverRedis {
		r := c.Credentials.Store.Redis
		cfg.Redis = &credential.RedisConfig{
			Addr:     r.Addr,
			Username: r.Username,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
		}
	}
	return cfg
}

// SeedSets converts configured sets into credentials.
func (c *Config) SeedSets() []credential.Credentials {
	out := make([]credential.Credentials, 0, len(c.Credentials.Sets))
	for _, s := range c.Credentials.Sets {
		out = append(out, credential.Credentials{
			Name:       strings.TrimSpace(s.Name),
			ProviderID: s.Provider,
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
		})
	}
	return out
}
