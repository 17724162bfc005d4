package vision

import (
	"strings"

	"vision-relay-go/internal/domain/image"
	"vision-relay-go/internal/domain/provider"
	"vision-relay-go/internal/platform/errors"
)

// Build compiles req into the wire request of profile's dialect.
func Build(profile provider.Profile, apiKey string, req AnalysisRequest, extraHeaders map[string]string) (*RequestSpec, error) {
	const op = "vision.build"

	if strings.TrimSpace(req.Model) == "" {
		return nil, errors.New(errors.KindValidation, op, `field "model" is required`)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New(errors.KindValidation, op, `field "prompt" is required`)
	}
	if req.Image.Data == "" {
		return nil, errors.New(errors.KindValidation, op, `field "image" is required`)
	}

	var body map[string]any
	switch profile.Dialect {
	case provider.DialectMessage:
		body = messageBody(profile, req)
	case provider.DialectChat, "":
		body = chatBody(profile, req)
	default:
		return nil, errors.Newf(errors.KindConfig, op, "provider %q has unknown dialect %q", profile.ID, profile.Dialect)
	}

	for k, v := range req.ExtraFields {
		body[k] = v
	}

	headers, skipped := buildHeaders(profile, apiKey, extraHeaders)

	return &RequestSpec{
		URL:            strings.TrimRight(profile.BaseURL, "/") + profile.APIPath,
		Headers:        headers,
		Body:           body,
		SkippedHeaders: skipped,
	}, nil
}

// chatBody places the text part before the image part.
func chatBody(profile provider.Profile, req AnalysisRequest) map[string]any {
	imageURL := map[string]any{"url": req.Image.DataURI()}
	if profile.SupportsDetailParam && req.Sampling.Detail != "" {
		imageURL["detail"] = req.Sampling.Detail
	}

	messages := make([]map[string]any, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]any{
		"role": "user",
		"content": []map[string]any{
			{"type": "text", "text": req.Prompt},
			{"type": "image_url", "image_url": imageURL},
		},
	})

	body := map[string]any{
		"model":    req.Model,
		"messages": messages,
	}
	applySampling(body, req.Sampling, 0)
	if profile.SupportsJSONMode && wantsJSON(req.ResponseFormat) {
		body["response_format"] = map[string]any{"type": "json_object"}
	}
	return body
}

// messageBody places the image block before the text block.
func messageBody(profile provider.Profile, req AnalysisRequest) map[string]any {
	body := map[string]any{
		"model": req.Model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					imageBlock(req.Image),
					{"type": "text", "text": req.Prompt},
				},
			},
		},
	}
	if req.SystemPrompt != "" {
		body["system"] = req.SystemPrompt
	}
	applySampling(body, req.Sampling, profile.DefaultMaxTokens)
	return body
}

func imageBlock(desc image.Descriptor) map[string]any {
	if desc.IsURL() {
		return map[string]any{
			"type":   "image",
			"source": map[string]any{"type": "url", "url": desc.Data},
		}
	}
	return map[string]any{
		"type": "image",
		"source": map[string]any{
			"type":       "base64",
			"media_type": desc.MimeType,
			"data":       desc.Data,
		},
	}
}

func applySampling(body map[string]any, s Sampling, defaultMaxTokens int) {
	if s.Temperature != nil {
		body["temperature"] = *s.Temperature
	}
	switch {
	case s.MaxTokens != nil:
		body["max_tokens"] = *s.MaxTokens
	case defaultMaxTokens > 0:
		body["max_tokens"] = defaultMaxTokens
	}
	if s.TopP != nil {
		body["top_p"] = *s.TopP
	}
}

func wantsJSON(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case ResponseFormatJSON, "json_object":
		return true
	}
	return false
}
