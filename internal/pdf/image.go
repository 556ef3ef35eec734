package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// SignatureImage is a decoded signer-drawn signature image.
type SignatureImage struct {
	Data   []byte
	Format string // "png" or "jpeg"
	Width  int    // intrinsic pixel width
	Height int    // intrinsic pixel height
}

// DecodeSignatureImage decodes a base64 data URL into image bytes, verifying
// it is a well-formed PNG or JPEG before anything touches the document.
func DecodeSignatureImage(dataURL string) (SignatureImage, error) {
	payload := dataURL
	if strings.HasPrefix(dataURL, "data:") {
		idx := strings.Index(dataURL, ",")
		if idx < 0 {
			return SignatureImage{}, fmt.Errorf("malformed data URL")
		}
		meta := dataURL[len("data:"):idx]
		if !strings.Contains(meta, "base64") {
			return SignatureImage{}, fmt.Errorf("data URL must be base64 encoded")
		}
		payload = dataURL[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return SignatureImage{}, fmt.Errorf("decode signature image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return SignatureImage{}, fmt.Errorf("parse signature image: %w", err)
	}
	if format != "png" && format != "jpeg" {
		return SignatureImage{}, fmt.Errorf("unsupported image format %q (want png or jpeg)", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return SignatureImage{}, fmt.Errorf("signature image has no pixels")
	}

	return SignatureImage{
		Data:   raw,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
