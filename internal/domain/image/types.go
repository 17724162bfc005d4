package image

// SourceKind names where an image payload came from.
type SourceKind string

const (
	SourceBinary SourceKind = "binary"
	SourceBase64 SourceKind = "base64"
	SourceURL    SourceKind = "url"
)

// MaxSizeBytes is the largest decoded payload accepted for binary and base64 sources.
const MaxSizeBytes = 20 * 1024 * 1024

// MIMEURL is the sentinel MimeType carried by URL descriptors.
const MIMEURL = "url"

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEWEBP = "image/webp"
)

// SupportedMIMETypes lists the formats accepted for inline payloads, in the
// order they are reported in error messages.
var SupportedMIMETypes = []string{MIMEJPEG, MIMEPNG, MIMEGIF, MIMEWEBP}

// Source is one raw image input. Binary sources read Bytes; base64 and URL
// sources read Payload.
type Source struct {
	Kind         SourceKind
	Payload      string
	Bytes        []byte
	FileName     string
	DeclaredMIME string
}

// Descriptor is the validated, provider-neutral form of an image.
//
// For inline sources Data holds standard base64 and MimeType is one of
// SupportedMIMETypes. For URL sources Data is the http(s) URL, MimeType is
// MIMEURL and SizeBytes is the length of the URL string.
type Descriptor struct {
	Data       string     `json:"data"`
	MimeType   string     `json:"mimeType"`
	SizeBytes  int        `json:"sizeBytes"`
	SourceKind SourceKind `json:"sourceKind"`
	Width      int        `json:"width,omitempty"`
	Height     int        `json:"height,omitempty"`
	warnings   []string
}

// IsURL reports whether the descriptor references a remote image.
func (d Descriptor) IsURL() bool {
	return d.SourceKind == SourceURL
}

// DataURI renders inline descriptors as data:<mime>;base64,<data>. URL
// descriptors return the URL unchanged.
func (d Descriptor) DataURI() string {
	if d.IsURL() {
		return d.Data
	}
	return "data:" + d.MimeType + ";base64," + d.Data
}

// Warnings returns a copy of the non-fatal notes recorded while building.
func (d Descriptor) Warnings() []string {
	if len(d.warnings) == 0 {
		return nil
	}
	out := make([]string, len(d.warnings))
	copy(out, d.warnings)
	return out
}
