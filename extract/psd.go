package extract

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/oov/psd"
	"github.com/setanarut/mascotlayer/utils"
)

func openPSD(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := psd.Decode(bufio.NewReader(f), &psd.DecodeOptions{SkipMergedImage: true})
	if err != nil {
		return nil, err
	}
	return &Document{
		Size:      img.Config.Rect.Size(),
		ColorMode: fmt.Sprint(img.Config.ColorMode),
		Source:    filepath.Base(path),
		Root:      psdNodes(img.Layer, img.Config.Depth),
	}, nil
}

// psdNodes converts a level of the PSD layer tree. PSD stores layers bottom
// to top, which is the node order.
func psdNodes(layers []psd.Layer, depth int) []*Node {
	nodes := make([]*Node, 0, len(layers))
	for i := range layers {
		l := &layers[i]
		n := &Node{
			Name:      psdName(l),
			Visible:   l.Visible(),
			Opacity:   l.Opacity,
			BlendMode: fmt.Sprint(l.BlendMode),
		}
		if l.Folder() {
			n.Group = true
			n.Children = psdNodes(l.Layer, depth)
		} else {
			n.Rect = l.Rect
			n.Pixels = psdPixels{layer: l, depth: depth}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// psdName prefers the Unicode layer name over the legacy MBCS one.
func psdName(l *psd.Layer) string {
	if l.UnicodeName != "" {
		return l.UnicodeName
	}
	return l.Name
}

type psdPixels struct {
	layer *psd.Layer
	depth int
}

func (p psdPixels) picker() (image.Image, error) {
	if p.layer.Rect.Empty() || p.layer.Picker == nil {
		return nil, ErrNoPixels
	}
	return p.layer.Picker, nil
}

func (p psdPixels) Composite() (image.Image, error) {
	img, err := p.picker()
	if err != nil {
		return nil, err
	}
	return placeAt(utils.WithOpacity(img, p.layer.Opacity), p.layer.Rect), nil
}

func (p psdPixels) Raster() (image.Image, error) {
	img, err := p.picker()
	if err != nil {
		return nil, err
	}
	return placeAt(img, p.layer.Rect), nil
}

// Channels rebuilds the layer from its uncompressed channel planes: 0-2 for
// colour (0 alone for grayscale) and -1 for transparency. 16-bit samples
// keep their high byte.
func (p psdPixels) Channels() (image.Image, error) {
	r := p.layer.Rect
	if r.Empty() {
		return nil, ErrNoPixels
	}
	var size int
	switch p.depth {
	case 8:
		size = 1
	case 16:
		size = 2
	default:
		return nil, fmt.Errorf("unsupported channel depth %d", p.depth)
	}
	n := r.Dx() * r.Dy()
	plane := func(id int) ([]byte, bool, error) {
		ch, ok := p.layer.Channel[id]
		if !ok {
			return nil, false, nil
		}
		if len(ch.Data) < n*size {
			return nil, false, fmt.Errorf("channel %d: %d bytes, want %d", id, len(ch.Data), n*size)
		}
		return ch.Data, true, nil
	}

	red, ok, err := plane(0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no colour channel", ErrNoPixels)
	}
	green, okG, err := plane(1)
	if err != nil {
		return nil, err
	}
	blue, okB, err := plane(2)
	if err != nil {
		return nil, err
	}
	if !okG || !okB {
		green, blue = red, red
	}
	alpha, okA, err := plane(-1)
	if err != nil {
		return nil, err
	}

	out := image.NewNRGBA(r)
	for i := range n {
		o := i * 4
		out.Pix[o] = red[i*size]
		out.Pix[o+1] = green[i*size]
		out.Pix[o+2] = blue[i*size]
		out.Pix[o+3] = 255
		if okA {
			out.Pix[o+3] = alpha[i*size]
		}
	}
	return out, nil
}
