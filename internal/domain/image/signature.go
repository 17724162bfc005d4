package image

import (
	"bytes"
	"path/filepath"
	"strings"
)

type signature struct {
	mime  string
	magic []byte
}

// Checked in order; the first matching prefix wins.
var imageSignatures = []signature{
	{MIMEJPEG, []byte{0xFF, 0xD8, 0xFF}},
	{MIMEPNG, []byte{0x89, 0x50, 0x4E, 0x47}},
	{MIMEGIF, []byte{0x47, 0x49, 0x46}},
	{MIMEWEBP, []byte{0x52, 0x49, 0x46, 0x46}},
}

var extensionMIME = map[string]string{
	".jpg":  MIMEJPEG,
	".jpeg": MIMEJPEG,
	".jpe":  MIMEJPEG,
	".png":  MIMEPNG,
	".gif":  MIMEGIF,
	".webp": MIMEWEBP,
}

// SniffMIME returns the MIME type whose magic bytes prefix data, or "".
func SniffMIME(data []byte) string {
	for _, sig := range imageSignatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.mime
		}
	}
	return ""
}

// MIMEFromFileName maps a file extension through the fixed extension table.
func MIMEFromFileName(name string) string {
	if name == "" {
		return ""
	}
	return extensionMIME[strings.ToLower(filepath.Ext(name))]
}

// IsSupportedMIME reports whether mime is one of SupportedMIMETypes.
func IsSupportedMIME(mime string) bool {
	for _, m := range SupportedMIMETypes {
		if m == mime {
			return true
		}
	}
	return false
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "image/jpg" || mime == "image/pjpeg" {
		return MIMEJPEG
	}
	return mime
}
