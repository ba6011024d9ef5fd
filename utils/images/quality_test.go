package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// gradient returns test image with a smooth gradient pattern.
func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			b := uint8(((x + y) * 255) / (width + height))
			img.Set(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return img
}

func createTestJPEG(t testing.TB, width, height, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(width, height), &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestJPEGQuality(t *testing.T) {
	for _, q := range []int{10, 30, 50, 70, 85, 95, 100} {
		t.Run(fmt.Sprintf("q%d", q), func(t *testing.T) {
			got, err := JPEGQuality(createTestJPEG(t, 64, 64, q))
			if err != nil {
				t.Fatalf("JPEGQuality() error = %v", err)
			}
			if got != q {
				t.Errorf("JPEGQuality() = %d, want %d", got, q)
			}
		})
	}
}

func TestJPEGQuality_DifferentImageSizes(t *testing.T) {
	sizes := []struct {
		width  int
		height int
	}{
		{8, 8},
		{50, 50},
		{200, 150},
	}

	for _, size := range sizes {
		t.Run(fmt.Sprintf("%dx%d", size.width, size.height), func(t *testing.T) {
			got, err := JPEGQuality(createTestJPEG(t, size.width, size.height, 85))
			if err != nil {
				t.Fatalf("JPEGQuality() error = %v", err)
			}
			if got != 85 {
				t.Errorf("JPEGQuality() = %d, want 85", got)
			}
		})
	}
}

func TestJPEGQuality_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"not jpeg", []byte("this is not jpeg")},
		{"incomplete", []byte{0xff, 0xd8, 0xff}},
		{"no DQT", []byte{0xff, 0xd8, 0xff, 0xd9}},
		{"short segment", []byte{0xff, 0xd8, 0xff, 0xdb, 0x00, 0x43, 0x00, 0x01}},
		{"garbage after SOI", []byte{0xff, 0xd8, 0x00, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := JPEGQuality(tt.data); !errors.Is(err, ErrInvalidJPEG) {
				t.Errorf("JPEGQuality() error = %v, want ErrInvalidJPEG", err)
			}
		})
	}
}

func BenchmarkJPEGQuality(b *testing.B) {
	data := createTestJPEG(b, 200, 200, 85)

	b.ResetTimer()
	for b.Loop() {
		if _, err := JPEGQuality(data); err != nil {
			b.Fatalf("JPEGQuality() error = %v", err)
		}
	}
}
