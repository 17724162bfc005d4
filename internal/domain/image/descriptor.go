package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	stdimage "image"
	"net/url"
	"strings"
	"unicode"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"vision-relay-go/internal/utils"
)

// Builder turns raw image sources into Descriptors. The zero value is usable.
type Builder struct {
	logger *utils.Logger
}

// NewBuilder returns a Builder that logs MIME discrepancies to logger.
func NewBuilder(logger *utils.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build validates src with the default logger.
func Build(src Source) (Descriptor, error) {
	return NewBuilder(utils.DefaultLogger).Build(src)
}

// FromBytes builds a descriptor for a binary attachment.
func FromBytes(data []byte, fileName, declaredMIME string) (Descriptor, error) {
	return Build(Source{
		Kind:         SourceBinary,
		Bytes:        data,
		FileName:     fileName,
		DeclaredMIME: declaredMIME,
	})
}

func (b *Builder) Build(src Source) (Descriptor, error) {
	switch src.Kind {
	case SourceURL:
		return buildURL(src.Payload)
	case SourceBase64:
		raw, declared, err := decodeBase64(src.Payload)
		if err != nil {
			return Descriptor{}, err
		}
		if src.DeclaredMIME == "" {
			src.DeclaredMIME = declared
		}
		return b.buildInline(raw, "", src)
	case SourceBinary:
		return b.buildInline(src.Bytes, "", src)
	default:
		return Descriptor{}, newValidationError(CodeInvalidEncoding, "sourceKind", string(src.Kind),
			"binary, base64 or url", "unknown image source kind")
	}
}

// buildInline validates raw. encoded may carry a precomputed base64 form of raw.
func (b *Builder) buildInline(raw []byte, encoded string, src Source) (Descriptor, error) {
	if len(raw) == 0 {
		return Descriptor{}, newValidationError(CodeEmptyPayload, "data", "0 bytes", "at least 1 byte",
			"image payload is empty")
	}
	if len(raw) > MaxSizeBytes {
		return Descriptor{}, newValidationError(CodeOversized, "data",
			fmt.Sprintf("%d bytes", len(raw)), fmt.Sprintf("at most %d bytes", MaxSizeBytes),
			"image payload exceeds the 20 MiB limit")
	}

	mime, warnings := resolveMIME(raw, src.FileName, normalizeMIME(src.DeclaredMIME))
	for _, w := range warnings {
		b.logger.WarnTag("IMAGE", w)
	}
	if !IsSupportedMIME(mime) {
		detected := mime
		if detected == "" {
			detected = "unknown"
		}
		return Descriptor{}, newValidationError(CodeUnsupportedFormat, "mimeType", detected, supportedList(),
			"unsupported image format, supported formats are "+supportedList())
	}

	if encoded == "" {
		encoded = base64.StdEncoding.EncodeToString(raw)
	}
	desc := Descriptor{
		Data:       encoded,
		MimeType:   mime,
		SizeBytes:  len(raw),
		SourceKind: src.Kind,
		warnings:   warnings,
	}
	if cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(raw)); err == nil {
		desc.Width, desc.Height = cfg.Width, cfg.Height
	}
	return desc, nil
}

// resolveMIME applies filename extension, then magic bytes, then the declared
// MIME. Disagreements with the magic bytes are returned as warnings.
func resolveMIME(raw []byte, fileName, declared string) (string, []string) {
	var warnings []string
	byName := MIMEFromFileName(fileName)
	byMagic := SniffMIME(raw)

	if declared != "" && byMagic != "" && declared != byMagic {
		warnings = append(warnings, fmt.Sprintf(
			"declared MIME %s does not match detected %s, using %s", declared, byMagic, byMagic))
	}
	if byName != "" && byMagic != "" && byName != byMagic {
		warnings = append(warnings, fmt.Sprintf(
			"file name %q suggests %s but content is %s", fileName, byName, byMagic))
	}

	switch {
	case byName != "":
		return byName, warnings
	case byMagic != "":
		return byMagic, warnings
	default:
		return declared, warnings
	}
}

// decodeBase64 strips whitespace and an optional data URI prefix, then
// decodes padded or unpadded standard base64. The data URI MIME is returned
// as the declared MIME.
func decodeBase64(payload string) ([]byte, string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, payload)

	var declared string
	if strings.HasPrefix(strings.ToLower(cleaned), "data:") {
		comma := strings.IndexByte(cleaned, ',')
		if comma < 0 {
			return nil, "", newValidationError(CodeInvalidEncoding, "data", "data URI without payload",
				"data:<mime>;base64,<payload>", "malformed data URI")
		}
		meta := cleaned[len("data:"):comma]
		if !strings.HasSuffix(strings.ToLower(meta), ";base64") {
			return nil, "", newValidationError(CodeInvalidEncoding, "data", meta,
				"data:<mime>;base64,<payload>", "data URI is not base64 encoded")
		}
		declared = meta[:len(meta)-len(";base64")]
		cleaned = cleaned[comma+1:]
	}

	if cleaned == "" {
		return nil, declared, newValidationError(CodeEmptyPayload, "data", "0 bytes", "at least 1 byte",
			"image payload is empty")
	}

	enc := base64.StdEncoding
	if len(cleaned)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	raw, err := enc.DecodeString(cleaned)
	if err != nil {
		verr := newValidationError(CodeInvalidEncoding, "data", "malformed base64", "standard base64",
			"image payload is not valid base64")
		verr.Cause = err
		return nil, declared, verr
	}
	return raw, declared, nil
}

func buildURL(payload string) (Descriptor, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return Descriptor{}, newValidationError(CodeInvalidURL, "imageUrl", "empty", "http(s) URL",
			"image URL is empty")
	}

	lower := strings.ToLower(trimmed)
	for _, token := range []string{"<script", "javascript:"} {
		if strings.Contains(lower, token) {
			return Descriptor{}, newValidationError(CodeUnsafeURL, "imageUrl", token, "http(s) URL",
				"image URL contains unsafe content")
		}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		verr := newValidationError(CodeInvalidURL, "imageUrl", utils.Truncate(trimmed, 64), "absolute http(s) URL",
			"image URL is not a valid absolute URL")
		verr.Cause = err
		return Descriptor{}, verr
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Descriptor{}, newValidationError(CodeInvalidURL, "imageUrl", parsed.Scheme, "http or https",
			"image URL scheme is not supported")
	}

	return Descriptor{
		Data:       trimmed,
		MimeType:   MIMEURL,
		SizeBytes:  len(trimmed),
		SourceKind: SourceURL,
	}, nil
}
