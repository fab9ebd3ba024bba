// internal/content/image.go
package content

import (
	"bytes"
	"encoding/base64"
	"regexp"
)

var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)

type signature struct {
	magic  []byte
	mime   string
	format string
}

var imageSignatures = []signature{
	{magic: []byte{0xFF, 0xD8, 0xFF}, mime: "image/jpeg", format: "jpeg"},
	{magic: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, mime: "image/png", format: "png"},
	{magic: []byte{0x47, 0x49, 0x46, 0x38}, mime: "image/gif", format: "gif"},
	{magic: []byte{0x52, 0x49, 0x46, 0x46}, mime: "image/webp", format: "webp"},
}

// LooksLikeBase64 reports whether s is made only of base64 alphabet characters
// with at most two trailing pad characters.
func LooksLikeBase64(s string) bool {
	return base64Pattern.MatchString(s)
}

// ImageFormat decodes s as standard base64 and matches its leading bytes
// against the JPEG, PNG, GIF and RIFF/WEBP signatures. It returns the mime type
// and short format name; ok is false on decode failure or no match.
func ImageFormat(s string) (mime, format string, ok bool) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", "", false
	}
	header := data
	if len(header) > 8 {
		header = header[:8]
	}
	for _, sig := range imageSignatures {
		if bytes.HasPrefix(header, sig.magic) {
			return sig.mime, sig.format, true
		}
	}
	return "", "", false
}

// IsImageData reports whether s decodes to bytes with a known image signature.
func IsImageData(s string) bool {
	_, _, ok := ImageFormat(s)
	return ok
}

// Classify tags raw retrieved content as an image or text.
func Classify(raw string) Kind {
	if LooksLikeBase64(raw) && IsImageData(raw) {
		return KindImage
	}
	return KindText
}

// ImageMIME returns the mime type for an image payload, defaulting to JPEG.
func ImageMIME(s string) string {
	if mime, _, ok := ImageFormat(s); ok {
		return mime
	}
	return "image/jpeg"
}
