package provider

import "time"

// Dialect selects the request and response wire shape of a provider.
type Dialect string

const (
	// DialectChat is the OpenAI-compatible chat completions shape.
	DialectChat Dialect = "chat"
	// DialectMessage is the Anthropic messages shape.
	DialectMessage Dialect = "message"
)

// Profile is an immutable description of one vision-capable provider.
type Profile struct {
	ID                  string
	DisplayName         string
	BaseURL             string
	APIPath             string
	Dialect             Dialect
	SupportsDetailParam bool
	SupportsJSONMode    bool
	// APIKeyHeader names the header AuthHeaders writes the key into.
	APIKeyHeader string
	AuthHeaders  func(apiKey string) map[string]string
	// DefaultMaxTokens is sent when the caller leaves max tokens unset; 0 omits it.
	DefaultMaxTokens int
	// Models is nil when the provider has no usable models listing.
	Models *ModelsEndpoint
}

// ModelsEndpoint describes where a provider lists its models.
type ModelsEndpoint struct {
	Path   string
	Filter func(ModelInfo) bool
}

// ModelInfo is one raw entry of a provider's models listing.
type ModelInfo struct {
	ID          string
	DisplayName string
	OwnedBy     string
	Created     time.Time
}

// ModelOption is a model surfaced to callers.
type ModelOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Headers returns the authentication headers for apiKey.
func (p Profile) Headers(apiKey string) map[string]string {
	if p.AuthHeaders == nil {
		return bearerAuth(apiKey)
	}
	return p.AuthHeaders(apiKey)
}

func (p Profile) clone() Profile {
	if p.Models != nil {
		m := *p.Models
		p.Models = &m
	}
	return p
}

func bearerAuth(apiKey string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

func anthropicAuth(apiKey string) map[string]string {
	return map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": AnthropicVersion,
	}
}
