// Package imaging inspects and downsizes the images returned by the
// generation endpoint.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultThumbnailMaxDimension is the longest side of a thumbnail.
const DefaultThumbnailMaxDimension = 256

// Info describes a decoded image.
type Info struct {
	Format string
	Width  int
	Height int

	// Producer is the EXIF make and model, when the image carries them.
	Producer string
	// Created is the EXIF capture or creation date, when present.
	Created time.Time
}

// Inspect reads the image header. EXIF data is optional; images without it
// return an Info with only format and dimensions.
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	info := Info{Format: format, Width: cfg.Width, Height: cfg.Height}

	if format == "jpeg" || format == "webp" {
		readExif(data, &info)
	}
	return info, nil
}

func readExif(data []byte, info *Info) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debug().Err(err).Str("format", info.Format).Msg("No EXIF metadata in image")
		return
	}

	info.Producer = strings.TrimSpace(strings.TrimSpace(exifData.Make) + " " + strings.TrimSpace(exifData.Model))

	// DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		info.Created = exifData.DateTimeOriginal()
	case !exifData.CreateDate().IsZero():
		info.Created = exifData.CreateDate()
	case !exifData.ModifyDate().IsZero():
		info.Created = exifData.ModifyDate()
	}
}

// Thumbnail decodes data and returns a PNG no larger than maxDimension on
// either side. Images already within the limit are re-encoded unscaled.
func Thumbnail(data []byte, maxDimension int) ([]byte, error) {
	if maxDimension <= 0 {
		return nil, fmt.Errorf("thumbnail size must be positive, got %d", maxDimension)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := thumbnailDimensions(origWidth, origHeight, maxDimension)

	out := img
	if newWidth != origWidth || newHeight != origHeight {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	log.Debug().
		Str("format", format).
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Thumbnail generated")

	return buf.Bytes(), nil
}

// thumbnailDimensions scales the longer side down to maxDimension, keeping
// the aspect ratio. Neither side drops below one pixel.
func thumbnailDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		return maxDimension, max(1, int(float64(height)*float64(maxDimension)/float64(width)))
	}
	return max(1, int(float64(width)*float64(maxDimension)/float64(height))), maxDimension
}
