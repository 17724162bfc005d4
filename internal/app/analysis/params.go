package analysis

import (
	"strings"

	"vision-relay-go/internal/domain/vision"
	"vision-relay-go/internal/platform/errors"
)

// InputType selects where an item's image comes from.
type InputType string

const (
	InputBinary InputType = "binaryData"
	InputURL    InputType = "url"
	InputBase64 InputType = "base64"
)

const (
	DefaultBinaryProperty = "data"
	DefaultOutputField    = "analysis"
	DefaultURLField       = "imageUrl"
	DefaultBase64Field    = "image"
)

// Params configures a batch. Zero values fall back to the defaults above.
type Params struct {
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	InputType InputType `json:"inputType"`

	BinaryProperty string `json:"binaryProperty,omitempty"`
	// ImageField names the JSON field holding a URL or base64 payload.
	ImageField string `json:"imageField,omitempty"`
	// ImageValue, when set, is used for every item instead of ImageField.
	ImageValue   string `json:"imageValue,omitempty"`
	DeclaredMIME string `json:"mimeType,omitempty"`
	FileName     string `json:"fileName,omitempty"`

	SystemPrompt   string            `json:"systemPrompt,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	MaxTokens      *int              `json:"maxTokens,omitempty"`
	TopP           *float64          `json:"topP,omitempty"`
	Detail         string            `json:"detail,omitempty"`
	ResponseFormat string            `json:"responseFormat,omitempty"`
	ExtraFields    map[string]any    `json:"extraFields,omitempty"`
	ExtraHeaders   map[string]string `json:"extraHeaders,omitempty"`

	OutputField     string `json:"outputField,omitempty"`
	IncludeMetadata bool   `json:"includeMetadata,omitempty"`
	ContinueOnFail  bool   `json:"continueOnFail,omitempty"`
}

// WithDefaults fills unset fields.
func (p Params) WithDefaults() Params {
	p.Model = strings.TrimSpace(p.Model)
	if p.InputType == "" {
		p.InputType = InputBinary
	}
	if p.BinaryProperty == "" {
		p.BinaryProperty = DefaultBinaryProperty
	}
	if p.ImageField == "" {
		switch p.InputType {
		case InputURL:
			p.ImageField = DefaultURLField
		case InputBase64:
			p.ImageField = DefaultBase64Field
		}
	}
	if p.OutputField == "" {
		p.OutputField = DefaultOutputField
	}
	return p
}

// Validate checks the batch-level parameters.
func (p Params) Validate() error {
	const op = "analysis.params"
	switch p.InputType {
	case InputBinary, InputURL, InputBase64:
	default:
		return errors.Newf(errors.KindValidation, op,
			"field \"inputType\": unknown value %q, expected binaryData, url or base64", p.InputType)
	}
	if p.Model == "" {
		return errors.New(errors.KindValidation, op, "field \"model\" is required")
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return errors.New(errors.KindValidation, op, "field \"prompt\" is required")
	}
	return nil
}

func (p Params) sampling() vision.Sampling {
	return vision.Sampling{
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		TopP:        p.TopP,
		Detail:      p.Detail,
	}
}
