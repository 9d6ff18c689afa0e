package comix

import (
	"fmt"
	"strings"
)

// ParseDataURI splits a base64 data URI back into an ImageAsset. Only the
// "data:<type>;base64,<payload>" form produced by DataURI is accepted.
func ParseDataURI(uri string) (ImageAsset, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ImageAsset{}, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ImageAsset{}, fmt.Errorf("data URI has no payload")
	}
	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return ImageAsset{}, fmt.Errorf("data URI is not base64 encoded")
	}
	return ImageAsset{ContentType: contentType, Base64: payload}, nil
}

// Extension returns a file extension for a content type, including the dot.
func Extension(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
