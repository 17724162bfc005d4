package provider

import "strings"

const chatCompletionsPath = "/v1/chat/completions"

func builtinProfiles() []Profile {
	return []Profile{
		{
			ID:                  OpenAI,
			DisplayName:         "OpenAI",
			BaseURL:             "https://api.openai.com",
			APIPath:             chatCompletionsPath,
			Dialect:             DialectChat,
			SupportsDetailParam: true,
			SupportsJSONMode:    true,
			APIKeyHeader:        "Authorization",
			AuthHeaders:         bearerAuth,
			Models:              &ModelsEndpoint{Path: "/v1/models", Filter: openAIVisionModel},
		},
		{
			ID:               Anthropic,
			DisplayName:      "Anthropic",
			BaseURL:          "https://api.anthropic.com",
			APIPath:          "/v1/messages",
			Dialect:          DialectMessage,
			APIKeyHeader:     "x-api-key",
			AuthHeaders:      anthropicAuth,
			DefaultMaxTokens: 4096,
			Models:           &ModelsEndpoint{Path: "/v1/models"},
		},
		{
			ID:                  OpenRouter,
			DisplayName:         "OpenRouter",
			BaseURL:             "https://openrouter.ai/api",
			APIPath:             chatCompletionsPath,
			Dialect:             DialectChat,
			SupportsDetailParam: true,
			SupportsJSONMode:    true,
			APIKeyHeader:        "Authorization",
			AuthHeaders:         bearerAuth,
			Models:              &ModelsEndpoint{Path: "/v1/models"},
		},
		{
			ID:               Groq,
			DisplayName:      "Groq",
			BaseURL:          "https://api.groq.com/openai",
			APIPath:          chatCompletionsPath,
			Dialect:          DialectChat,
			SupportsJSONMode: true,
			APIKeyHeader:     "Authorization",
			AuthHeaders:      bearerAuth,
			Models:           &ModelsEndpoint{Path: "/v1/models", Filter: idContainsAny("vision", "llama-4")},
		},
		{
			ID:                  XAI,
			DisplayName:         "xAI",
			BaseURL:             "https://api.x.ai",
			APIPath:             chatCompletionsPath,
			Dialect:             DialectChat,
			SupportsDetailParam: true,
			SupportsJSONMode:    true,
			APIKeyHeader:        "Authorization",
			AuthHeaders:         bearerAuth,
			Models:              &ModelsEndpoint{Path: "/v1/models", Filter: idContainsAny("vision", "grok-4")},
		},
		{
			ID:               Gemini,
			DisplayName:      "Google Gemini (OpenAI compatible)",
			BaseURL:          "https://generativelanguage.googleapis.com",
			APIPath:          "/v1beta/openai/chat/completions",
			Dialect:          DialectChat,
			SupportsJSONMode: true,
			APIKeyHeader:     "Authorization",
			AuthHeaders:      bearerAuth,
			Models:           &ModelsEndpoint{Path: "/v1beta/openai/models", Filter: idContainsAny("gemini")},
		},
		{
			ID:               Mistral,
			DisplayName:      "Mistral AI",
			BaseURL:          "https://api.mistral.ai",
			APIPath:          chatCompletionsPath,
			Dialect:          DialectChat,
			SupportsJSONMode: true,
			APIKeyHeader:     "Authorization",
			AuthHeaders:      bearerAuth,
			Models: &ModelsEndpoint{
				Path:   "/v1/models",
				Filter: idContainsAny("pixtral", "mistral-small", "mistral-medium", "mistral-large"),
			},
		},
		{
			// Together lists models as a bare array, which the chat listing cannot decode.
			ID:               Together,
			DisplayName:      "Together AI",
			BaseURL:          "https://api.together.xyz",
			APIPath:          chatCompletionsPath,
			Dialect:          DialectChat,
			SupportsJSONMode: true,
			APIKeyHeader:     "Authorization",
			AuthHeaders:      bearerAuth,
		},
		customProfile(),
	}
}

// customProfile has no base URL of its own. The caller's base URL is expected
// to include the API version segment.
func customProfile() Profile {
	return Profile{
		ID:                  Custom,
		DisplayName:         "Custom (OpenAI compatible)",
		APIPath:             "/chat/completions",
		Dialect:             DialectChat,
		SupportsDetailParam: true,
		APIKeyHeader:        "Authorization",
		AuthHeaders:         bearerAuth,
		Models:              &ModelsEndpoint{Path: "/models"},
	}
}

var openAINonChat = []string{"embedding", "whisper", "tts", "dall-e", "moderation", "audio", "realtime", "transcribe", "image", "search"}

func openAIVisionModel(m ModelInfo) bool {
	id := strings.ToLower(m.ID)
	for _, skip := range openAINonChat {
		if strings.Contains(id, skip) {
			return false
		}
	}
	return strings.HasPrefix(id, "gpt-4o") ||
		strings.HasPrefix(id, "gpt-4.1") ||
		strings.HasPrefix(id, "gpt-5") ||
		strings.HasPrefix(id, "chatgpt-4o") ||
		strings.HasPrefix(id, "o1") ||
		strings.HasPrefix(id, "o3") ||
		strings.HasPrefix(id, "o4") ||
		strings.Contains(id, "vision")
}

func idContainsAny(fragments ...string) func(ModelInfo) bool {
	return func(m ModelInfo) bool {
		id := strings.ToLower(m.ID)
		for _, f := range fragments {
			if strings.Contains(id, f) {
				return true
			}
		}
		return false
	}
}
