package vision

import (
	"encoding/json"
	"math"
	"strings"

	"vision-relay-go/internal/domain/provider"
)

// Extract reads the analysis out of a decoded provider response. Missing or
// malformed fields degrade to zero values; it never fails.
func Extract(profile provider.Profile, raw map[string]any) AnalysisResult {
	if raw == nil {
		return AnalysisResult{}
	}
	if profile.Dialect == provider.DialectMessage {
		return extractMessage(raw)
	}
	return extractChat(raw)
}

func extractChat(raw map[string]any) AnalysisResult {
	result := AnalysisResult{Model: stringField(raw, "model")}

	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			result.FinishReason = stringField(choice, "finish_reason")
			if msg, ok := choice["message"].(map[string]any); ok {
				result.Text = contentText(msg["content"])
			}
		}
	}

	if usage, ok := raw["usage"].(map[string]any); ok {
		result.Usage = &Usage{
			InputTokens:  firstInt(usage, "prompt_tokens", "input_tokens"),
			OutputTokens: firstInt(usage, "completion_tokens", "output_tokens"),
		}
	}
	return result
}

func extractMessage(raw map[string]any) AnalysisResult {
	result := AnalysisResult{
		Model:        stringField(raw, "model"),
		FinishReason: stringField(raw, "stop_reason"),
	}

	if blocks, ok := raw["content"].([]any); ok {
		if len(blocks) > 0 {
			if block, ok := blocks[0].(map[string]any); ok {
				result.Text = stringField(block, "text")
			}
		}
		if result.Text == "" {
			for _, b := range blocks {
				if block, ok := b.(map[string]any); ok {
					if text := stringField(block, "text"); text != "" {
						result.Text = text
						break
					}
				}
			}
		}
	}

	if usage, ok := raw["usage"].(map[string]any); ok {
		result.Usage = &Usage{
			InputTokens:  firstInt(usage, "input_tokens"),
			OutputTokens: firstInt(usage, "output_tokens"),
		}
	}
	return result
}

// contentText accepts a plain string or an array of {type:"text", text} parts.
func contentText(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case []any:
		var parts []string
		for _, p := range c {
			switch part := p.(type) {
			case string:
				parts = append(parts, part)
			case map[string]any:
				if text := stringField(part, "text"); text != "" {
					parts = append(parts, text)
				}
			}
		}
		return strings.Join(parts, "")
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		if n, ok := toInt(m[k]); ok {
			return n
		}
	}
	return 0
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case float32:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(f), true
		}
	}
	return 0, false
}
