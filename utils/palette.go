package utils

import (
	"fmt"
	"image"
	"math"
	"slices"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// PaletteMethod selects how swatch palettes are extracted.
type PaletteMethod int

const (
	PaletteMethodDominantColor PaletteMethod = iota
	PaletteMethodKMeans
)

// maxSamples caps the pixels fed to either palette method.
const maxSamples = 12000

type swatch struct {
	col    colorful.Color
	weight float64
}

// SortPaletteByBrightness orders colors from darkest to brightest.
func SortPaletteByBrightness(palette []colorful.Color) {
	slices.SortFunc(palette, func(a, b colorful.Color) int {
		ri, gi, bi := a.LinearRgb()
		rj, gj, bj := b.LinearRgb()
		yi := 0.2126*ri + 0.7152*gi + 0.0722*bi
		yj := 0.2126*rj + 0.7152*gj + 0.0722*bj
		if yi < yj {
			return -1
		}
		if yi > yj {
			return 1
		}
		return 0
	})
}

func (m PaletteMethod) String() string {
	switch m {
	case PaletteMethodKMeans:
		return "kmeans"
	default:
		return "dominantcolor"
	}
}

// ParsePaletteMethod accepts the names returned by PaletteMethod.String.
func ParsePaletteMethod(s string) (PaletteMethod, error) {
	switch strings.ToLower(s) {
	case "kmeans":
		return PaletteMethodKMeans, nil
	case "dominantcolor", "":
		return PaletteMethodDominantColor, nil
	}
	return 0, fmt.Errorf("unknown palette method %q", s)
}

// ExtractPalette returns up to k diverse colours of the visible pixels of a
// layer image. Fully transparent pixels never contribute; an image without
// visible pixels has no palette. The k-means method falls back to the
// dominant colour method when clustering fails.
func ExtractPalette(img image.Image, k int, method PaletteMethod) []colorful.Color {
	if k <= 0 {
		return nil
	}
	samples := visibleSamples(img)
	if len(samples) == 0 {
		return nil
	}
	if method == PaletteMethodKMeans {
		if p := kmeansPalette(samples, k); len(p) != 0 {
			return p
		}
	}
	return dominantPalette(samples, k)
}

// visibleSamples collects the colours of non-transparent pixels on an even
// grid of at most maxSamples points.
func visibleSamples(img image.Image) []colorful.Color {
	b := img.Bounds()
	area := b.Dx() * b.Dy()
	if area == 0 {
		return nil
	}
	step := 1
	if area > maxSamples {
		step = int(math.Sqrt(float64(area)/maxSamples)) + 1
	}
	samples := make([]colorful.Color, 0, min(area, maxSamples))
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			samples = append(samples, c)
		}
	}
	return samples
}

// packSamples lays the samples out as an opaque image for dominantcolor,
// which has no notion of transparency. The last row repeats samples from
// the start so that no filler colour is introduced.
func packSamples(samples []colorful.Color) *image.NRGBA {
	w := int(math.Ceil(math.Sqrt(float64(len(samples)))))
	h := (len(samples) + w - 1) / w
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range w * h {
		r, g, b := samples[i%len(samples)].RGB255()
		o := i * 4
		out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = r, g, b, 255
	}
	return out
}

func dominantPalette(samples []colorful.Color, k int) []colorful.Color {
	found := dominantcolor.FindWeight(packSamples(samples), max(24, k*8))
	cands := make([]swatch, 0, len(found))
	for _, c := range found {
		col, _ := colorful.MakeColor(c.RGBA)
		cands = append(cands, swatch{col: col.Clamped(), weight: c.Weight})
	}
	if len(cands) == 0 {
		cands = append(cands, swatch{col: samples[0], weight: 1})
	}
	return selectDiverse(cands, k)
}

func kmeansPalette(samples []colorful.Color, k int) []colorful.Color {
	dataset := make(clusters.Observations, len(samples))
	for i, c := range samples {
		dataset[i] = clusters.Coordinates{c.R, c.G, c.B}
	}
	cc, err := kmeans.New().Partition(dataset, min(max(k*4, k+2), len(dataset)))
	if err != nil {
		return nil
	}
	cands := make([]swatch, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		col := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped()
		cands = append(cands, swatch{col: col, weight: float64(len(c.Observations))})
	}
	return selectDiverse(cands, k)
}

// selectDiverse seeds with the heaviest candidate and then repeatedly adds
// the candidate farthest in Lab space from those already chosen, with
// heavier candidates favoured.
func selectDiverse(cands []swatch, k int) []colorful.Color {
	if len(cands) == 0 {
		return nil
	}
	k = min(k, len(cands))
	maxW := 0.0
	for i := range cands {
		cands[i].weight = max(cands[i].weight, 1e-6)
		maxW = max(maxW, cands[i].weight)
	}

	seed := 0
	for i, c := range cands {
		if c.weight > cands[seed].weight {
			seed = i
		}
	}
	chosen := []int{seed}
	taken := map[int]bool{seed: true}

	for len(chosen) < k {
		best, bestScore := -1, -1.0
		for i, c := range cands {
			if taken[i] {
				continue
			}
			nearest := math.MaxFloat64
			for _, j := range chosen {
				nearest = min(nearest, c.col.DistanceLab(cands[j].col))
			}
			score := nearest * (0.55 + 0.45*math.Sqrt(c.weight/maxW))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		taken[best] = true
		chosen = append(chosen, best)
	}

	out := make([]colorful.Color, len(chosen))
	for i, j := range chosen {
		out[i] = cands[j].col
	}
	return out
}

// HexPalette formats the palette as #rrggbb strings.
func HexPalette(palette []colorful.Color) []string {
	out := make([]string, len(palette))
	for i, c := range palette {
		out[i] = c.Clamped().Hex()
	}
	return out
}
