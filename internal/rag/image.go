// internal/rag/image.go
package rag

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ResizeBase64Image decodes a base64 image, resizes it to exactly width x
// height with Lanczos resampling, and re-encodes it in its original format.
func ResizeBase64Image(b64 string, width, height int) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	// imaging has no WEBP encoder; the caller keeps the original payload
	out, err := imaging.FormatFromExtension(format)
	if err != nil {
		return "", fmt.Errorf("re-encode %s: %w", format, err)
	}

	resized := imaging.Resize(img, width, height, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, out); err != nil {
		return "", fmt.Errorf("encode %s: %w", format, err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
