package provider

import (
	"net/url"
	"sort"
	"strings"

	"vision-relay-go/internal/platform/errors"
)

const (
	OpenAI     = "openai"
	Anthropic  = "anthropic"
	OpenRouter = "openrouter"
	Groq       = "groq"
	XAI        = "xai"
	Gemini     = "gemini"
	Mistral    = "mistral"
	Together   = "together"
	// Custom is any OpenAI-compatible endpoint supplied by the caller.
	Custom = "custom"

	DefaultID        = OpenAI
	AnthropicVersion = "2023-06-01"
)

// Registry is a read-only lookup over provider profiles.
type Registry struct {
	profiles map[string]Profile
	ids      []string
}

// NewRegistry indexes profiles by lower-cased ID. Later duplicates win.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if _, exists := r.profiles[id]; !exists {
			r.ids = append(r.ids, id)
		}
		p.ID = id
		r.profiles[id] = p.clone()
	}
	sort.Strings(r.ids)
	return r
}

// DefaultRegistry returns the built-in provider table.
func DefaultRegistry() *Registry {
	return NewRegistry(builtinProfiles()...)
}

// IDs lists the registered provider ids in alphabetical order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Lookup returns the profile registered under id.
func (r *Registry) Lookup(id string) (Profile, bool) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Profile{}, false
	}
	return p.clone(), true
}

// Resolve maps a provider id to a profile. Unknown or empty ids fall back to
// the openai profile. "custom" requires customBaseURL; any other id uses
// customBaseURL, when set, in place of its own base URL.
func (r *Registry) Resolve(providerID, customBaseURL string) (Profile, error) {
	const op = "provider.resolve"

	id := strings.ToLower(strings.TrimSpace(providerID))
	customBaseURL = strings.TrimSpace(customBaseURL)

	if id == Custom {
		if customBaseURL == "" {
			return Profile{}, errors.New(errors.KindConfig, op, `provider "custom" requires a base URL`)
		}
	}

	profile, ok := r.Lookup(id)
	if !ok {
		if id == Custom {
			profile = customProfile()
		} else if profile, ok = r.Lookup(DefaultID); !ok {
			return Profile{}, errors.Newf(errors.KindConfig, op, "default provider %q is not registered", DefaultID)
		}
	}

	if customBaseURL != "" {
		if err := validateBaseURL(customBaseURL); err != nil {
			return Profile{}, errors.Wrap(errors.KindConfig, op, "invalid base URL "+customBaseURL, err)
		}
		profile.BaseURL = customBaseURL
	}
	return profile, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.KindConfig, "provider.base_url", "expected an absolute http(s) URL")
	}
	return nil
}
