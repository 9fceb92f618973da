package renderer

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ErrDegenerate is returned when a source cannot be center-cropped.
var ErrDegenerate = errors.New("degenerate source dimensions")

// CropRect returns the centered crop of a srcW×srcH image that matches the
// w×h aspect ratio. Wider sources keep their full height, the rest keep their
// full width. The rectangle is relative to the source origin.
func CropRect(srcW, srcH, w, h int) (image.Rectangle, error) {
	if srcW <= 0 || srcH <= 0 {
		return image.Rectangle{}, fmt.Errorf("source %dx%d: %w", srcW, srcH, ErrDegenerate)
	}
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, fmt.Errorf("target %dx%d: %w", w, h, ErrDegenerate)
	}

	targetRatio := float64(w) / float64(h)
	srcRatio := float64(srcW) / float64(srcH)

	var cropW, cropH int
	if srcRatio > targetRatio {
		cropH = srcH
		cropW = int(math.Round(float64(srcH) * targetRatio))
	} else {
		cropW = srcW
		cropH = int(math.Round(float64(srcW) / targetRatio))
	}

	if cropW <= 0 || cropH <= 0 || cropW > srcW || cropH > srcH {
		return image.Rectangle{}, fmt.Errorf("crop %dx%d of %dx%d: %w", cropW, cropH, srcW, srcH, ErrDegenerate)
	}

	cropX := (srcW - cropW) / 2
	cropY := (srcH - cropH) / 2
	return image.Rect(cropX, cropY, cropX+cropW, cropY+cropH), nil
}

// Normalize center-crops src to the w:h ratio and resamples it to exactly w×h
// with a Lanczos filter. A source that is already w×h is copied unchanged.
func Normalize(src image.Image, w, h int) (*image.NRGBA, error) {
	b := src.Bounds()
	rect, err := CropRect(b.Dx(), b.Dy(), w, h)
	if err != nil {
		return nil, err
	}

	cropped := imaging.Crop(src, rect.Add(b.Min))
	if rect.Dx() == w && rect.Dy() == h {
		return cropped, nil
	}
	return imaging.Resize(cropped, w, h, imaging.Lanczos), nil
}
