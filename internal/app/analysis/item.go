package analysis

// BinaryData is a named attachment carried by an item.
type BinaryData struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mimeType,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// Item is one workflow record: a JSON field bag plus binary attachments.
type Item struct {
	JSON   map[string]any         `json:"json"`
	Binary map[string]*BinaryData `json:"binary,omitempty"`
}

// withJSON returns a shallow copy of item whose JSON is a copy of the
// original bag with fields merged on top. Binary is shared, never modified.
func (item Item) withJSON(fields map[string]any) Item {
	out := make(map[string]any, len(item.JSON)+len(fields))
	for k, v := range item.JSON {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return Item{JSON: out, Binary: item.Binary}
}
