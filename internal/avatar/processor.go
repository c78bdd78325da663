// Package avatar validates and normalizes profile picture uploads. Every
// accepted image is resized to a fixed square and transcoded to PNG before it
// is stored, so the fetch endpoint always serves one canonical format.
package avatar

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoding
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/taskhive/taskhive/internal/domain/errs"
)

const (
	// MaxUploadBytes is the upload size ceiling (1 MB).
	MaxUploadBytes = 1_000_000

	// TargetSize is the side length of the stored square image in pixels.
	TargetSize = 250

	// ContentType is the media type every stored avatar is served with.
	ContentType = "image/png"
)

// allowedExtensions is the upload filename allow-list.
var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// Accept checks the upload against the filename allow-list and the size
// ceiling before any bytes are decoded.
func Accept(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("%w: %q must be a JPG, JPEG or PNG file", errs.ErrInvalidFile, filename)
	}
	if size <= 0 || size > MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds the %d byte limit", errs.ErrInvalidFile, MaxUploadBytes)
	}
	return nil
}

// Normalize decodes the upload, scales it to TargetSize x TargetSize and
// re-encodes it as PNG. Undecodable data fails with errs.ErrInvalidFile.
func Normalize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: not a decodable image: %w", errs.ErrInvalidFile, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, TargetSize, TargetSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if encodeErr := png.Encode(&buf, dst); encodeErr != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", encodeErr)
	}

	return buf.Bytes(), nil
}
