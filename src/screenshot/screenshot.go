package screenshot

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

// Region represents a screen region to capture.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// CaptureRegion captures a rectangular screen region. The kbinani grab is
// tried first; if it errors or produces a zero-area image, robotgo is used
// as the fallback. Both failing is reported as an error the caller treats
// as "no image".
func CaptureRegion(region Region) (*image.RGBA, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", region.Width, region.Height)
	}

	bounds := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)

	img, err := screenshot.CaptureRect(bounds)
	if err == nil && img.Bounds().Dx() > 0 && img.Bounds().Dy() > 0 {
		return img, nil
	}
	if err != nil {
		zap.S().Warnf("Primary screen grab failed: %v, trying fallback", err)
	} else {
		zap.S().Warn("Primary screen grab produced a zero-area image, trying fallback")
	}

	fallback, ferr := robotgo.CaptureImg(region.X, region.Y, region.Width, region.Height)
	if ferr != nil {
		return nil, fmt.Errorf("all capture methods failed: %v; fallback: %v", err, ferr)
	}
	rgba := toRGBA(fallback)
	if rgba.Bounds().Dx() == 0 || rgba.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("fallback capture produced a zero-area image")
	}
	return rgba, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// EncodePNG converts a captured image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %v", err)
	}
	return buf.Bytes(), nil
}

// PrimaryDisplayBounds returns the bounds of the primary display.
func PrimaryDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}
