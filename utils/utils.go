package utils

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// ReadImage decodes the image file at path.
func ReadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// ReadNRGBA decodes the image file at path into a non-premultiplied buffer
// anchored at the origin.
func ReadNRGBA(path string) (*image.NRGBA, error) {
	img, err := ReadImage(path)
	if err != nil {
		return nil, err
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts img to *image.NRGBA with bounds starting at (0,0).
// Images that already qualify are returned unchanged.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Crop copies the part of img inside r. The result is anchored at the origin.
func Crop(img image.Image, r image.Rectangle) *image.NRGBA {
	r = r.Intersect(img.Bounds())
	out := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

// WithOpacity returns a copy of img whose alpha is scaled by opacity/255.
func WithOpacity(img image.Image, opacity uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	mask := image.NewUniform(color.Alpha{A: opacity})
	draw.DrawMask(out, out.Bounds(), img, b.Min, mask, image.Point{}, draw.Over)
	return out
}

// IsTransparent reports whether every pixel of img has zero alpha.
func IsTransparent(img *image.NRGBA) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 3; i < len(row); i += 4 {
			if row[i] != 0 {
				return false
			}
		}
	}
	return true
}

var optimized = png.Encoder{CompressionLevel: png.BestCompression}

// EncodePNG writes img with maximum compression.
func EncodePNG(w io.Writer, img image.Image) error {
	return optimized.Encode(w, img)
}

// SaveImage writes img as an optimized PNG, creating parent directories.
// An existing file is replaced.
func SaveImage(img image.Image, filename string) error {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filename, buf.Bytes(), 0o644)
}

// SavePalette renders the palette as a strip of square tiles.
func SavePalette(palette []colorful.Color, tileSize int, filename string) error {
	if len(palette) == 0 {
		return fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}

	w := tileSize * len(palette)
	h := tileSize
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for i, c := range palette {
		x0 := i * tileSize
		draw.Draw(img, image.Rect(x0, 0, x0+tileSize, h), image.NewUniform(c.Clamped()), image.Point{}, draw.Src)
	}

	return SaveImage(img, filename)
}
