package vision

import (
	"vision-relay-go/internal/app/analysis"
	domainvision "vision-relay-go/internal/domain/vision"
)

// AnalysisData is the data payload of a single upload analysis.
type AnalysisData struct {
	Result       string              `json:"result"`
	Model        string              `json:"model,omitempty"`
	Provider     string              `json:"provider,omitempty"`
	FinishReason string              `json:"finishReason,omitempty"`
	Usage        *domainvision.Usage `json:"usage,omitempty"`
	MimeType     string              `json:"mimeType"`
	SizeBytes    int                 `json:"sizeBytes"`
	Width        int                 `json:"width,omitempty"`
	Height       int                 `json:"height,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
}

// BinaryPayload is an attachment on the wire. Data is base64 in JSON.
type BinaryPayload struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mimeType,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// BatchItem is the wire form of analysis.Item.
type BatchItem struct {
	JSON   map[string]any           `json:"json"`
	Binary map[string]BinaryPayload `json:"binary,omitempty"`
}

type BatchRequest struct {
	Items  []BatchItem `json:"items" binding:"required"`
	Params BatchParams `json:"params"`
}

// BatchParams shadows includeMetadata so an explicit false can override
// the configured default.
type BatchParams struct {
	analysis.Params
	IncludeMetadata *bool `json:"includeMetadata,omitempty"`
}

type BatchResponse struct {
	Items []analysis.Item `json:"items"`
}

// CredentialRequest is the body of PUT /credentials/:name.
type CredentialRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey" binding:"required"`
	BaseURL  string `json:"baseUrl"`
}

// ModelsData answers GET /vision/models. Unsupported providers set
// Unsupported and leave Models empty.
type ModelsData struct {
	Provider    string      `json:"provider"`
	Unsupported bool        `json:"unsupported,omitempty"`
	Models      interface{} `json:"models"`
}

func toItems(in []BatchItem) []analysis.Item {
	items := make([]analysis.Item, len(in))
	for i, bi := range in {
		item := analysis.Item{JSON: bi.JSON}
		if item.JSON == nil {
			item.JSON = map[string]any{}
		}
		if len(bi.Binary) > 0 {
			item.Binary = make(map[string]*analysis.BinaryData, len(bi.Binary))
			for name, b := range bi.Binary {
				item.Binary[name] = &analysis.BinaryData{Data: b.Data, MimeType: b.MimeType, FileName: b.FileName}
			}
		}
		items[i] = item
	}
	return items
}
