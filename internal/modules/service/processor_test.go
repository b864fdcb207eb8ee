package service

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTransparentPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	// fully transparent everywhere
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestProcessKeepsSmallPanoramaSize(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.jpg")
	writeTestJPEG(t, src, 2048, 1024)
	dest := t.TempDir()

	out, err := NewPanoramaProcessor(zap.NewNop()).Process(context.Background(), src, dest, "kitchen")
	require.NoError(t, err)

	assert.Equal(t, "kitchen_360.jpg", out.ImageName)
	assert.Equal(t, "kitchen_thumb.jpg", out.ThumbName)
	assert.Equal(t, 2048, out.Width)
	assert.Equal(t, 1024, out.Height)

	w, h := decodeSize(t, filepath.Join(dest, out.ImageName))
	assert.Equal(t, 2048, w)
	assert.Equal(t, 1024, h)
}

func TestProcessDownscalesToWebCeiling(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.jpg")
	writeTestJPEG(t, src, 6000, 3000)
	dest := t.TempDir()

	out, err := NewPanoramaProcessor(zap.NewNop()).Process(context.Background(), src, dest, "pano")
	require.NoError(t, err)

	assert.Equal(t, WebMaxWidth, out.Width)
	assert.Equal(t, 2048, out.Height)
}

func TestProcessThumbnailFitsBox(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.jpg")
	writeTestJPEG(t, src, 4096, 2048)
	dest := t.TempDir()

	out, err := NewPanoramaProcessor(zap.NewNop()).Process(context.Background(), src, dest, "pano")
	require.NoError(t, err)

	w, h := decodeSize(t, filepath.Join(dest, out.ThumbName))
	assert.LessOrEqual(t, w, 400)
	assert.LessOrEqual(t, h, 200)
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)
}

func TestProcessFlattensAlphaToWhite(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.png")
	writeTransparentPNG(t, src, 2048, 1024)
	dest := t.TempDir()

	out, err := NewPanoramaProcessor(zap.NewNop()).Process(context.Background(), src, dest, "pano")
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dest, out.ImageName))
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)

	r, g, b, _ := img.At(100, 100).RGBA()
	// JPEG is lossy; near-white is enough
	assert.Greater(t, r, uint32(0xf000))
	assert.Greater(t, g, uint32(0xf000))
	assert.Greater(t, b, uint32(0xf000))
}

func TestProcessIsIdempotent(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.jpg")
	writeTestJPEG(t, src, 2048, 1024)
	dest := t.TempDir()

	p := NewPanoramaProcessor(zap.NewNop())
	first, err := p.Process(context.Background(), src, dest, "pano")
	require.NoError(t, err)
	second, err := p.Process(context.Background(), src, dest, "pano")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestProcessMissingSource(t *testing.T) {
	_, err := NewPanoramaProcessor(zap.NewNop()).
		Process(context.Background(), "/nonexistent/src.jpg", t.TempDir(), "pano")
	assert.Error(t, err)
}

func TestProcessCancelledContext(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.jpg")
	writeTestJPEG(t, src, 2048, 1024)
	dest := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPanoramaProcessor(zap.NewNop()).Process(ctx, src, dest, "pano")
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
