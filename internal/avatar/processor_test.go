package avatar_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/avatar"
	"github.com/taskhive/taskhive/internal/domain/errs"
)

func TestAccept(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		wantErr  bool
	}{
		{"jpg ok", "me.jpg", 1024, false},
		{"jpeg ok", "me.jpeg", 1024, false},
		{"png ok", "me.png", 1024, false},
		{"uppercase extension ok", "ME.JPG", 1024, false},
		{"at the ceiling", "me.png", avatar.MaxUploadBytes, false},
		{"gif rejected", "me.gif", 1024, true},
		{"pdf rejected", "resume.pdf", 1024, true},
		{"no extension", "avatar", 1024, true},
		{"too large", "me.png", avatar.MaxUploadBytes + 1, true},
		{"empty file", "me.png", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := avatar.Accept(tt.filename, tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrInvalidFile)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func testImage(t *testing.T, w, h int) image.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	return img
}

func TestNormalize_FromPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(t, 640, 480)))

	out, err := avatar.Normalize(buf.Bytes())
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, avatar.TargetSize, decoded.Bounds().Dx())
	assert.Equal(t, avatar.TargetSize, decoded.Bounds().Dy())
}

func TestNormalize_FromJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(t, 100, 300), nil))

	out, err := avatar.Normalize(buf.Bytes())
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format, "all avatars are transcoded to PNG")
}

func TestNormalize_RejectsGarbage(t *testing.T) {
	_, err := avatar.Normalize([]byte("definitely not an image"))
	assert.ErrorIs(t, err, errs.ErrInvalidFile)

	_, err = avatar.Normalize(nil)
	assert.ErrorIs(t, err, errs.ErrInvalidFile)
}
