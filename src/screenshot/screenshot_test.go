package screenshot

import (
	"image"
	"image/color"
	"testing"
)

func TestCaptureRegionRejectsInvalidDimensions(t *testing.T) {
	cases := []Region{
		{X: 0, Y: 0, Width: 0, Height: 100},
		{X: 0, Y: 0, Width: 100, Height: 0},
		{X: 0, Y: 0, Width: -5, Height: 10},
	}
	for _, r := range cases {
		if _, err := CaptureRegion(r); err == nil {
			t.Errorf("Expected error for region %+v", r)
		}
	}
}

func TestEncodePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	// PNG magic number
	if len(data) < 8 || data[0] != 0x89 || data[1] != 'P' || data[2] != 'N' || data[3] != 'G' {
		t.Error("Expected PNG header in encoded output")
	}
}

func TestToRGBA(t *testing.T) {
	gray := image.NewGray(image.Rect(2, 3, 6, 8))
	rgba := toRGBA(gray)
	if rgba.Bounds().Dx() != 4 || rgba.Bounds().Dy() != 5 {
		t.Errorf("Expected 4x5 image, got %v", rgba.Bounds())
	}
	if rgba.Bounds().Min != (image.Point{}) {
		t.Errorf("Expected origin-normalized bounds, got %v", rgba.Bounds())
	}
}
