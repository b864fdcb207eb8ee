package service

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// MinPanoramaWidth is the resolution floor below which an
	// equirectangular projection falls apart in the viewer.
	MinPanoramaWidth = 2048

	// Tolerance band around the ideal 2:1 equirectangular ratio.
	minAspectRatio = 1.8
	maxAspectRatio = 2.2
)

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// PanoramaValidator checks an uploaded image's geometry and encoding before
// any expensive work is scheduled. It never mutates the file.
type PanoramaValidator struct{}

func NewPanoramaValidator() *PanoramaValidator {
	return &PanoramaValidator{}
}

// Validate reports whether the file at path is usable as an equirectangular
// panorama. Rules run in order and the first failure wins; reason is a
// human-readable explanation suitable for a synchronous upload rejection.
func (v *PanoramaValidator) Validate(path string) (bool, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return false, fmt.Sprintf("unsupported format %q, use .jpg, .jpeg, .png or .webp", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Sprintf("cannot open image: %v", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return false, fmt.Sprintf("cannot decode image: %v", err)
	}

	if cfg.Width < MinPanoramaWidth {
		return false, fmt.Sprintf("image width %dpx is below the minimum of %dpx", cfg.Width, MinPanoramaWidth)
	}

	if cfg.Height <= 0 {
		return false, "image height is zero"
	}
	ratio := float64(cfg.Width) / float64(cfg.Height)
	if ratio < minAspectRatio || ratio > maxAspectRatio {
		return false, fmt.Sprintf("aspect ratio %.2f is outside [%.1f, %.1f], expected 2:1 equirectangular", ratio, minAspectRatio, maxAspectRatio)
	}

	switch cfg.ColorModel {
	case color.GrayModel, color.Gray16Model, color.CMYKModel, color.AlphaModel, color.Alpha16Model:
		return false, "image color mode is not RGB-decodable"
	}

	return true, ""
}
