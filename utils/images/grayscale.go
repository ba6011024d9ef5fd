package images

import (
	"image"
	"image/color"
	"image/draw"
)

// IsGrayscale reports whether img is grayscale (all pixels have R==G==B).
// NOTE: This function may be slow for large images, if speed is a problem it
// could be optimized.
func IsGrayscale(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R != c.G || c.G != c.B {
				return false
			}
		}
	}
	return true
}

// toGray returns 8 bit grayscale copy of opaque grayscale image, so PNG
// encoder could write single channel. Anything else is returned unchanged.
func toGray(img image.Image) image.Image {
	if _, ok := img.(*image.Gray); ok {
		return img
	}
	if o, ok := img.(interface{ Opaque() bool }); !ok || !o.Opaque() {
		return img
	}
	if !IsGrayscale(img) {
		return img
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}
