package mascotlayer

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Over composites a non-premultiplied source over a non-premultiplied
// destination with the Porter-Duff "over" operator:
//
//	outA   = srcA + dstA*(1-srcA)
//	outRGB = (srcRGB*srcA + dstRGB*dstA*(1-srcA)) / outA
//
// A fully transparent result has black colour.
func Over(src colorful.Color, srcA float64, dst colorful.Color, dstA float64) (colorful.Color, float64) {
	k := dstA * (1 - srcA)
	outA := srcA + k
	if outA <= 0 {
		return colorful.Color{}, 0
	}
	return colorful.Color{
		R: (src.R*srcA + dst.R*k) / outA,
		G: (src.G*srcA + dst.G*k) / outA,
		B: (src.B*srcA + dst.B*k) / outA,
	}, outA
}

// Canvas is a floating-point, non-premultiplied RGBA surface. Each compose
// call owns its canvas; layer images are only read from.
type Canvas struct {
	W, H int
	Pix  []float32 // Interleaved RGBA in [0,1], len = W*H*4
}

// NewCanvas returns a fully transparent canvas.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{W: w, H: h, Pix: make([]float32, w*h*4)}
}

func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.W, c.H)
}

// Draw composites src onto the canvas with src.Bounds().Min placed at `at`.
// Only the intersection of the canvas and the placed rectangle is touched;
// negative offsets are allowed. Opacity scales the source alpha.
func (c *Canvas) Draw(src *image.NRGBA, at image.Point, opacity float64) {
	sb := src.Bounds()
	placed := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	r := placed.Intersect(c.Bounds())
	if r.Empty() || opacity <= 0 {
		return
	}
	opacity = min(opacity, 1)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		sy := sb.Min.Y + y - at.Y
		for x := r.Min.X; x < r.Max.X; x++ {
			sx := sb.Min.X + x - at.X
			si := src.PixOffset(sx, sy)
			sa := float64(src.Pix[si+3]) / 255 * opacity
			if sa == 0 {
				continue
			}
			s := colorful.Color{
				R: float64(src.Pix[si]) / 255,
				G: float64(src.Pix[si+1]) / 255,
				B: float64(src.Pix[si+2]) / 255,
			}
			di := (y*c.W + x) * 4
			d := colorful.Color{
				R: float64(c.Pix[di]),
				G: float64(c.Pix[di+1]),
				B: float64(c.Pix[di+2]),
			}
			out, a := Over(s, sa, d, float64(c.Pix[di+3]))
			c.Pix[di] = float32(out.R)
			c.Pix[di+1] = float32(out.G)
			c.Pix[di+2] = float32(out.B)
			c.Pix[di+3] = float32(a)
		}
	}
}

// NRGBA quantises the canvas, keeping its alpha.
func (c *Canvas) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(c.Bounds())
	for i := 0; i < len(c.Pix); i += 4 {
		out.Pix[i] = quantize(c.Pix[i])
		out.Pix[i+1] = quantize(c.Pix[i+1])
		out.Pix[i+2] = quantize(c.Pix[i+2])
		out.Pix[i+3] = quantize(c.Pix[i+3])
	}
	return out
}

// Flatten blends the canvas onto an opaque background, using the canvas
// alpha as the mask. The result carries no transparency.
func (c *Canvas) Flatten(bg colorful.Color) *image.RGBA {
	out := image.NewRGBA(c.Bounds())
	for i := 0; i < len(c.Pix); i += 4 {
		a := float64(c.Pix[i+3])
		px := colorful.Color{
			R: float64(c.Pix[i]),
			G: float64(c.Pix[i+1]),
			B: float64(c.Pix[i+2]),
		}.BlendRgb(bg, 1-a)
		out.Pix[i] = quantize(float32(px.R))
		out.Pix[i+1] = quantize(float32(px.G))
		out.Pix[i+2] = quantize(float32(px.B))
		out.Pix[i+3] = 255
	}
	return out
}

func quantize(v float32) uint8 {
	return uint8(max(0, min(255, math.Round(float64(v)*255))))
}
