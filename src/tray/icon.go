package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// iconPNG renders the 16x16 tray icon: a blue square with a lighter
// inner block, enough to be recognizable at tray size.
func iconPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	outer := color.RGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	inner := color.RGBA{R: 0xcf, G: 0xe8, B: 0xff, A: 0xff}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := outer
			if x >= 4 && x < 12 && y >= 4 && y < 12 {
				c = inner
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
