// Package bundle packs the files of one generated strip into a ZIP archive
// compressed with Zstandard.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// MethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const MethodZstd uint16 = 93

func init() {
	zip.RegisterCompressor(MethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	zip.RegisterDecompressor(MethodZstd, func(r io.Reader) io.ReadCloser {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return io.NopCloser(errReader{err})
		}
		return dec.IOReadCloser()
	})
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// Write adds each file under its base name. Base names must be unique.
func Write(w io.Writer, paths []string, modified time.Time) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]bool, len(paths))

	for _, path := range paths {
		name := filepath.Base(path)
		if seen[name] {
			zw.Close()
			return fmt.Errorf("duplicate file name %q in bundle", name)
		}
		seen[name] = true

		if err := addFile(zw, path, name, modified); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string, modified time.Time) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   MethodZstd,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to zip: %w", name, err)
	}
	n, err := io.Copy(fw, f)
	if err != nil {
		return fmt.Errorf("failed to write %s to zip: %w", name, err)
	}
	log.Debug().Str("file", name).Int64("size", n).Msg("Added file to bundle")
	return nil
}

// WriteFile creates the archive at dest.
func WriteFile(dest string, paths []string, modified time.Time) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create bundle directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", dest, cerr)
		}
	}()
	return Write(f, paths, modified)
}
