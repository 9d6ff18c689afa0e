package terminal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fpang/comix-generator/internal/comix"
	"github.com/fpang/comix-generator/internal/imaging"
	"github.com/rs/zerolog/log"
)

// FileSlot is an ImageSlot that writes each image it is given to
// <dir>/<name><ext>, with an optional PNG thumbnail beside it.
type FileSlot struct {
	mu        sync.Mutex
	dir       string
	base      string
	thumbMax  int
	source    string
	path      string
	thumbPath string
	info      imaging.Info
	generated bool
}

// NewFileSlot returns a slot writing into dir. A thumbMax of zero disables
// thumbnails.
func NewFileSlot(dir, base string, thumbMax int) *FileSlot {
	return &FileSlot{dir: dir, base: base, thumbMax: thumbMax}
}

// SetSource decodes the data URI and writes the image file.
func (s *FileSlot) SetSource(dataURI string) error {
	asset, err := comix.ParseDataURI(dataURI)
	if err != nil {
		return fmt.Errorf("slot %s: %w", s.base, err)
	}
	data, err := asset.Decode()
	if err != nil {
		return fmt.Errorf("slot %s: %w", s.base, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(s.dir, s.base+comix.Extension(asset.ContentType))
	if s.path != "" && s.path != path {
		s.removeFiles()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	s.path = path
	s.source = dataURI

	info, err := imaging.Inspect(data)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Written image could not be inspected")
	}
	s.info = info

	if s.thumbMax > 0 && err == nil {
		s.writeThumbnail(data)
	}

	log.Debug().
		Str("path", path).
		Str("content_type", asset.ContentType).
		Int("width", info.Width).
		Int("height", info.Height).
		Int("size", len(data)).
		Msg("Image slot written")
	return nil
}

// writeThumbnail is best effort: a failed thumbnail leaves the full image.
func (s *FileSlot) writeThumbnail(data []byte) {
	thumb, err := imaging.Thumbnail(data, s.thumbMax)
	if err != nil {
		log.Warn().Err(err).Str("slot", s.base).Msg("Thumbnail generation failed")
		return
	}
	path := filepath.Join(s.dir, s.base+"_thumb.png")
	if err := os.WriteFile(path, thumb, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write thumbnail")
		return
	}
	s.thumbPath = path
}

func (s *FileSlot) MarkGenerated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated = true
}

// Clear deletes any files this slot wrote.
func (s *FileSlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeFiles()
	s.source = ""
	s.info = imaging.Info{}
	s.generated = false
}

func (s *FileSlot) removeFiles() {
	for _, p := range []string{s.path, s.thumbPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", p).Msg("Failed to remove stale image")
		}
	}
	s.path = ""
	s.thumbPath = ""
}

// Name is the slot's base file name, e.g. "image1".
func (s *FileSlot) Name() string { return s.base }

// Path returns the written image file, or "" when the slot is empty.
func (s *FileSlot) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// ThumbnailPath returns the written thumbnail, or "".
func (s *FileSlot) ThumbnailPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thumbPath
}

// Source returns the data URI last shown.
func (s *FileSlot) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Info returns the inspected image header.
func (s *FileSlot) Info() imaging.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Generated reports whether the slot holds generated content.
func (s *FileSlot) Generated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generated
}
