package config

import "time"

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Storage     StorageConfig     `yaml:"storage"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Vision      VisionConfig      `yaml:"vision"`
	Events      EventsConfig      `yaml:"events"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
	// Token is the HMAC secret for API bearer tokens. Empty disables auth.
	Token           string        `yaml:"token"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

type CredentialsConfig struct {
	Store StoreConfig `yaml:"store"`
	// Order lists credential set names tried in turn.
	Order []string        `yaml:"order"`
	Sets  []CredentialSet `yaml:"sets"`
}

type StoreConfig struct {
	Type  string           `yaml:"type"`
	Redis RedisStoreConfig `yaml:"redis,omitempty"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// CredentialSet is seeded into the store at startup.
type CredentialSet struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

type VisionConfig struct {
	DefaultModel    string `yaml:"default_model"`
	DefaultPrompt   string `yaml:"default_prompt"`
	OutputField     string `yaml:"output_field"`
	IncludeMetadata bool   `yaml:"include_metadata"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
}

type EventsConfig struct {
	Workers int  `yaml:"workers"`
	Persist bool `yaml:"persist"`
}
