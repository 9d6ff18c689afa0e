// Package comix holds the request and result types exchanged with the comic
// generation endpoint. A request carries a title and exactly three panel
// captions; a result carries up to three panel images plus the composite
// final image, each as base64 data with its content type.
package comix

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// CaptionCount is the number of captions (and generated panels) per strip.
const CaptionCount = 3

// User-facing messages shared by every surface.
const (
	MsgMissingCaptions = "Please enter all three captions"
	MsgTooLong         = "This is taking too long. Please try again."
	MsgUnknownError    = "Unknown error"
)

// GenerationRequest is the JSON body sent to the generation endpoint.
type GenerationRequest struct {
	Title    string   `json:"title"`
	Captions []string `json:"captions"`

	// Token is the quota token required by hosted deployments. It is left
	// out of the body when empty.
	Token string `json:"token,omitempty"`
}

// ValidationError reports captions that are empty after trimming.
type ValidationError struct {
	// Missing holds the 1-based positions of the empty captions.
	Missing []int
}

func (e *ValidationError) Error() string {
	return MsgMissingCaptions
}

// NewGenerationRequest trims the title and captions and checks that all three
// captions are present. The title may be empty.
func NewGenerationRequest(title string, captions []string) (GenerationRequest, error) {
	if len(captions) != CaptionCount {
		return GenerationRequest{}, fmt.Errorf("expected %d captions, got %d", CaptionCount, len(captions))
	}

	trimmed := make([]string, CaptionCount)
	var missing []int
	for i, c := range captions {
		trimmed[i] = strings.TrimSpace(c)
		if trimmed[i] == "" {
			missing = append(missing, i+1)
		}
	}
	if len(missing) > 0 {
		return GenerationRequest{}, &ValidationError{Missing: missing}
	}

	return GenerationRequest{
		Title:    strings.TrimSpace(title),
		Captions: trimmed,
	}, nil
}

// ImageAsset is one generated image as returned by the endpoint.
type ImageAsset struct {
	ContentType string `json:"content_type"`
	Base64      string `json:"base64"`
	Prompt      string `json:"prompt,omitempty"`

	// OriginalPrompt is sent by servers that report the prompt before rewriting.
	OriginalPrompt string `json:"original_prompt,omitempty"`
}

// DataURI renders the asset as a data: URI using the literal field values.
func (a ImageAsset) DataURI() string {
	return "data:" + a.ContentType + ";base64," + a.Base64
}

// PromptText returns whichever prompt field the server filled in.
func (a ImageAsset) PromptText() string {
	if a.Prompt != "" {
		return a.Prompt
	}
	return a.OriginalPrompt
}

// Decode returns the raw image bytes.
func (a ImageAsset) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", a.ContentType, err)
	}
	return data, nil
}

// GenerationResult is the success body of the generation endpoint.
type GenerationResult struct {
	Images     []ImageAsset `json:"images"`
	FinalImage ImageAsset   `json:"finalImage"`
}

// Validate checks the result shape: at most three panel images, each with
// data, and a final image with both a content type and data.
func (r *GenerationResult) Validate() error {
	if len(r.Images) > CaptionCount {
		return fmt.Errorf("response has %d panel images, at most %d supported", len(r.Images), CaptionCount)
	}
	for i, img := range r.Images {
		if img.Base64 == "" {
			return fmt.Errorf("response panel image %d has no data", i+1)
		}
	}
	if r.FinalImage.ContentType == "" || r.FinalImage.Base64 == "" {
		return fmt.Errorf("response has no final image")
	}
	return nil
}
