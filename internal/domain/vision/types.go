package vision

import "vision-relay-go/internal/domain/image"

// ResponseFormatJSON requests a JSON object from providers that support it.
const ResponseFormatJSON = "json"

// Sampling holds the optional generation parameters. Nil pointers and an
// empty Detail are omitted from the request.
type Sampling struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
	TopP        *float64 `json:"topP,omitempty"`
	Detail      string   `json:"detail,omitempty"`
}

// AnalysisRequest is the provider-neutral description of one image analysis.
type AnalysisRequest struct {
	Model          string
	Prompt         string
	Image          image.Descriptor
	Sampling       Sampling
	SystemPrompt   string
	ResponseFormat string
	ExtraFields    map[string]any
}

// RequestSpec is a wire-ready provider request.
type RequestSpec struct {
	URL     string
	Headers map[string]string
	Body    map[string]any
	// SkippedHeaders lists caller headers dropped because they would replace
	// authentication.
	SkippedHeaders []string
}

type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// AnalysisResult is the normalized provider answer.
type AnalysisResult struct {
	Text         string `json:"text"`
	Usage        *Usage `json:"usage,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
	Model        string `json:"model,omitempty"`
}
