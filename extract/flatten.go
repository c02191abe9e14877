package extract

import (
	"errors"
	"image"

	"github.com/setanarut/mascotlayer"
	"github.com/setanarut/mascotlayer/utils"
)

// sourceFunc yields the pixels of one paintable layer for flattening.
type sourceFunc func(n *Node) (image.Image, error)

// Flatten composites every visible layer of doc, honouring group and layer
// opacity. Only normal ("over") blending is applied.
func Flatten(doc *Document) *image.NRGBA {
	return flatten(doc, layerImage)
}

func flatten(doc *Document, source sourceFunc) *image.NRGBA {
	canvas := mascotlayer.NewCanvas(doc.Size.X, doc.Size.Y)
	flattenNodes(canvas, doc.Root, 1, source)
	return canvas.NRGBA()
}

func flattenNodes(canvas *mascotlayer.Canvas, nodes []*Node, opacity float64, source sourceFunc) {
	for _, n := range nodes {
		if !n.Visible {
			continue
		}
		op := opacity * float64(n.Opacity) / 255
		if n.Group {
			flattenNodes(canvas, n.Children, op, source)
			continue
		}
		img, err := source(n)
		if err != nil {
			mascotlayer.Logger().Debug("flatten: skipping layer", "name", n.Name, "error", err)
			continue
		}
		canvas.Draw(utils.ToNRGBA(img), img.Bounds().Min, op)
	}
}

// layerImage returns the raw pixels of a layer, falling back to its isolated
// composite and then to its channel data.
func layerImage(n *Node) (image.Image, error) {
	if n.Pixels == nil {
		return nil, ErrNoPixels
	}
	img, err := n.Pixels.Raster()
	if err == nil {
		return img, nil
	}
	img, cerr := n.Pixels.Composite()
	if cerr == nil {
		return img, nil
	}
	if cs, ok := n.Pixels.(ChannelSource); ok {
		return cs.Channels()
	}
	return nil, errors.Join(err, cerr)
}

// channelImage prefers the layer's channel data, the source the isolated
// strategies never read, and falls back to layerImage.
func channelImage(n *Node) (image.Image, error) {
	if cs, ok := n.Pixels.(ChannelSource); ok {
		img, err := cs.Channels()
		if err == nil {
			return img, nil
		}
		mascotlayer.Logger().Debug("channel decode failed", "name", n.Name, "error", err)
	}
	return layerImage(n)
}
