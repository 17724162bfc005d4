package eventbus

const (
	EventItemCompleted  = "analysis:item.completed"
	EventItemFailed     = "analysis:item.failed"
	EventBatchCompleted = "analysis:batch.completed"
)

// ItemEventData describes one analysed item.
type ItemEventData struct {
	BatchID      string   `json:"batch_id"`
	Index        int      `json:"index"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	SourceKind   string   `json:"source_kind,omitempty"`
	DurationMs   int64    `json:"duration_ms"`
	InputTokens  int      `json:"input_tokens,omitempty"`
	OutputTokens int      `json:"output_tokens,omitempty"`
	FinishReason string   `json:"finish_reason,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Error        string   `json:"error,omitempty"`
	ErrorKind    string   `json:"error_kind,omitempty"`
}

// BatchEventData summarises a finished batch.
type BatchEventData struct {
	BatchID    string `json:"batch_id"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Items      int    `json:"items"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"duration_ms"`
	Aborted    bool   `json:"aborted,omitempty"`
}
