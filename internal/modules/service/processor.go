package service

import (
	"context"
	"fmt"
	"image"
	imgdraw "image/draw"
	"image/jpeg"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

const (
	// WebMaxWidth is the delivery ceiling; larger panoramas are downscaled,
	// smaller ones are never upscaled.
	WebMaxWidth = 4096

	thumbMaxWidth  = 400
	thumbMaxHeight = 200

	panoramaQuality  = 85
	thumbnailQuality = 80
)

// ProcessedPanorama describes the artifacts one processing run produced,
// with names relative to the destination directory.
type ProcessedPanorama struct {
	ImageName string
	ThumbName string
	Width     int
	Height    int
}

// PanoramaProcessor transcodes a validated panorama into a web-delivery JPEG
// and a thumbnail. Runs are idempotent: the same source and stem always
// overwrite the same two files, and outputs appear atomically via rename.
type PanoramaProcessor struct {
	log *zap.Logger
}

func NewPanoramaProcessor(log *zap.Logger) *PanoramaProcessor {
	return &PanoramaProcessor{log: log}
}

func (p *PanoramaProcessor) Process(ctx context.Context, srcPath, destDir, stem string) (*ProcessedPanorama, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open source image: %w", err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination dir: %w", err)
	}

	// Transparency has no meaning for a photographic panorama: flatten any
	// alpha channel onto an opaque white background.
	flat := flattenToRGBA(src)

	if flat.Bounds().Dx() > WebMaxWidth {
		w := flat.Bounds().Dx()
		h := flat.Bounds().Dy()
		scaled := scaleRGBA(flat, WebMaxWidth, h*WebMaxWidth/w)
		p.log.Sugar().Infow("downscaled panorama",
			"from", fmt.Sprintf("%dx%d", w, h),
			"to", fmt.Sprintf("%dx%d", scaled.Bounds().Dx(), scaled.Bounds().Dy()))
		flat = scaled
	}

	// Scaling and encoding dominate the run; bail between stages if the
	// job was cancelled.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imageName := stem + "_360.jpg"
	thumbName := stem + "_thumb.jpg"

	if err := writeJPEG(filepath.Join(destDir, imageName), flat, panoramaQuality); err != nil {
		return nil, fmt.Errorf("encode panorama: %w", err)
	}

	tw, th := thumbnailSize(flat.Bounds().Dx(), flat.Bounds().Dy())
	thumb := scaleRGBA(flat, tw, th)
	if err := writeJPEG(filepath.Join(destDir, thumbName), thumb, thumbnailQuality); err != nil {
		// Keep the destination consistent: without a thumbnail the run
		// failed, so the full-size output must not survive either.
		os.Remove(filepath.Join(destDir, imageName))
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	return &ProcessedPanorama{
		ImageName: imageName,
		ThumbName: thumbName,
		Width:     flat.Bounds().Dx(),
		Height:    flat.Bounds().Dy(),
	}, nil
}

func flattenToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	imgdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, imgdraw.Src)
	imgdraw.Draw(dst, dst.Bounds(), src, b.Min, imgdraw.Over)
	return dst
}

func scaleRGBA(src *image.RGBA, width, height int) *image.RGBA {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

// thumbnailSize fits (w, h) into the thumbnail box preserving aspect ratio,
// never scaling up.
func thumbnailSize(w, h int) (int, int) {
	if w <= thumbMaxWidth && h <= thumbMaxHeight {
		return w, h
	}
	scaleW := float64(thumbMaxWidth) / float64(w)
	scaleH := float64(thumbMaxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	return int(float64(w) * scale), int(float64(h) * scale)
}

// writeJPEG encodes into a temp file in the same directory, then renames it
// over the final path so readers never observe a partial file.
func writeJPEG(path string, img image.Image, quality int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.jpg")
	if err != nil {
		return err
	}
	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: quality}); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
