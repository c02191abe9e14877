package extract

import (
	"errors"
	"fmt"
	"image"

	"github.com/setanarut/mascotlayer"
	"github.com/setanarut/mascotlayer/utils"
)

// Target is the layer a strategy extracts, with its enclosing groups.
type Target struct {
	Node      *Node
	Ancestors []*Node
}

// StrategyFunc extracts the pixels of one layer. The result is cropped to
// the layer's extent and anchored at the origin.
type StrategyFunc func(doc *Document, t Target) (*image.NRGBA, error)

// Strategy is a named extraction method.
type Strategy struct {
	Name    string
	Extract StrategyFunc
}

// DefaultStrategies are tried in order until one yields visible pixels.
var DefaultStrategies = []Strategy{
	{Name: "composite", Extract: CompositeStrategy},
	{Name: "raster", Extract: RasterStrategy},
	{Name: "isolate", Extract: IsolateStrategy},
}

// Run tries each strategy in order and returns the first usable image and
// the name of the strategy that produced it. When every strategy fails the
// individual errors are joined.
func Run(strategies []Strategy, doc *Document, t Target) (*image.NRGBA, string, error) {
	var errs []error
	for _, s := range strategies {
		img, err := s.Extract(doc, t)
		if err == nil {
			return img, s.Name, nil
		}
		mascotlayer.Logger().Debug("extraction strategy failed", "strategy", s.Name, "name", t.Node.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	if len(errs) == 0 {
		return nil, "", errors.New("no extraction strategies configured")
	}
	return nil, "", errors.Join(errs...)
}

// CompositeStrategy renders the layer in isolation.
func CompositeStrategy(doc *Document, t Target) (*image.NRGBA, error) {
	if t.Node.Pixels == nil {
		return nil, ErrNoPixels
	}
	img, err := t.Node.Pixels.Composite()
	if err != nil {
		return nil, err
	}
	return usable(img)
}

// RasterStrategy reads the raw layer pixels.
func RasterStrategy(doc *Document, t Target) (*image.NRGBA, error) {
	if t.Node.Pixels == nil {
		return nil, ErrNoPixels
	}
	img, err := t.Node.Pixels.Raster()
	if err != nil {
		return nil, err
	}
	return usable(img)
}

// IsolateStrategy hides every other layer, forces the target and all of its
// enclosing groups visible, flattens the whole document from channel data
// where the reader provides it and crops the target's extent. Visibility
// flags are restored before returning, whatever the outcome.
func IsolateStrategy(doc *Document, t Target) (img *image.NRGBA, err error) {
	if t.Node.Rect.Empty() {
		return nil, fmt.Errorf("%w: empty extent", ErrEmptyLayer)
	}

	saved := make(map[*Node]bool)
	doc.Walk(func(n *Node) {
		saved[n] = n.Visible
		n.Visible = false
	})
	defer func() {
		for n, v := range saved {
			n.Visible = v
		}
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("isolate: %v", r)
		}
	}()

	t.Node.Visible = true
	for _, g := range t.Ancestors {
		g.Visible = true
	}
	full := flatten(doc, channelImage)
	return usable(utils.Crop(full, t.Node.Rect))
}

// usable normalises img and rejects empty or fully transparent results.
func usable(img image.Image) (*image.NRGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoPixels
	}
	out := utils.ToNRGBA(img)
	if utils.IsTransparent(out) {
		return nil, ErrEmptyLayer
	}
	return out, nil
}
