package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-relay-go/internal/platform/errors"
)

func TestResolve_UnknownFallsBackToOpenAI(t *testing.T) {
	reg := DefaultRegistry()

	for _, id := range []string{"", "does-not-exist", "  "} {
		p, err := reg.Resolve(id, "")
		require.NoError(t, err)
		assert.Equal(t, OpenAI, p.ID, "id %q", id)
		assert.Equal(t, "https://api.openai.com", p.BaseURL)
	}
}

func TestResolve_KnownProfiles(t *testing.T) {
	reg := DefaultRegistry()

	p, err := reg.Resolve("Anthropic", "")
	require.NoError(t, err)
	assert.Equal(t, DialectMessage, p.Dialect)
	assert.Equal(t, "/v1/messages", p.APIPath)
	assert.Equal(t, 4096, p.DefaultMaxTokens)
	assert.Equal(t, map[string]string{"x-api-key": "k", "anthropic-version": AnthropicVersion}, p.Headers("k"))

	p, err = reg.Resolve(Groq, "")
	require.NoError(t, err)
	assert.Equal(t, DialectChat, p.Dialect)
	assert.False(t, p.SupportsDetailParam)
	assert.Equal(t, map[string]string{"Authorization": "Bearer k"}, p.Headers("k"))
}

func TestResolve_Custom(t *testing.T) {
	reg := DefaultRegistry()

	_, err := reg.Resolve(Custom, "")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	_, err = reg.Resolve(Custom, "not a url")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfig))

	p, err := reg.Resolve(Custom, "http://localhost:11434/v1/")
	require.NoError(t, err)
	assert.Equal(t, Custom, p.ID)
	assert.Equal(t, DialectChat, p.Dialect)
	assert.Equal(t, "http://localhost:11434/v1/", p.BaseURL)
	assert.Equal(t, "Authorization", p.APIKeyHeader)
}

func TestResolve_CustomWithoutRegistryRow(t *testing.T) {
	reg := NewRegistry(Profile{ID: OpenAI, BaseURL: "https://api.openai.com", APIPath: chatCompletionsPath})

	p, err := reg.Resolve(Custom, "https://llm.internal")
	require.NoError(t, err)
	assert.Equal(t, Custom, p.ID)
	assert.Equal(t, "https://llm.internal", p.BaseURL)
	assert.Equal(t, "/chat/completions", p.APIPath)
}

func TestResolve_KnownProfileWithOverride(t *testing.T) {
	reg := DefaultRegistry()

	p, err := reg.Resolve(Anthropic, "https://proxy.example.com")
	require.NoError(t, err)
	assert.Equal(t, DialectMessage, p.Dialect)
	assert.Equal(t, "https://proxy.example.com", p.BaseURL)

	again, err := reg.Resolve(Anthropic, "")
	require.NoError(t, err)
	assert.Equal(t, "https://api.anthropic.com", again.BaseURL, "overrides never mutate the table")
}

func TestResolve_MissingDefault(t *testing.T) {
	reg := NewRegistry(Profile{ID: Anthropic})

	_, err := reg.Resolve("unknown", "")
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	reg := DefaultRegistry()

	p, ok := reg.Lookup(OpenAI)
	require.True(t, ok)
	p.Models.Path = "/mutated"
	p.BaseURL = "https://mutated"

	fresh, _ := reg.Lookup(OpenAI)
	assert.Equal(t, "/v1/models", fresh.Models.Path)
	assert.Equal(t, "https://api.openai.com", fresh.BaseURL)
}

func TestRegistry_IDs(t *testing.T) {
	ids := DefaultRegistry().IDs()

	assert.Equal(t, []string{Anthropic, Custom, Gemini, Groq, Mistral, OpenAI, OpenRouter, Together, XAI}, ids)
}

func TestProfile_HeadersDefaultToBearer(t *testing.T) {
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc"}, Profile{}.Headers("abc"))
}

func TestOpenAIVisionModelFilter(t *testing.T) {
	keep := []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1", "o3", "gpt-5"}
	drop := []string{"text-embedding-3-small", "whisper-1", "tts-1", "dall-e-3", "gpt-4o-realtime-preview", "gpt-3.5-turbo"}

	for _, id := range keep {
		assert.True(t, openAIVisionModel(ModelInfo{ID: id}), id)
	}
	for _, id := range drop {
		assert.False(t, openAIVisionModel(ModelInfo{ID: id}), id)
	}
}
