// Package extract turns a layered source document into the PNG fragments
// and layer metadata consumed by the mascotlayer compositor.
package extract

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

var (
	// ErrOpenDocument wraps every failure to read the source document.
	ErrOpenDocument = errors.New("extract: cannot open source document")

	// ErrUnsupportedDocument is returned for unknown source file types.
	ErrUnsupportedDocument = errors.New("extract: unsupported source document")

	// ErrEmptyLayer reports a layer whose pixels are fully transparent.
	ErrEmptyLayer = errors.New("extract: layer is fully transparent")

	// ErrNoPixels reports a layer without pixel data.
	ErrNoPixels = errors.New("extract: layer has no pixel data")
)

// Pixels gives access to the pixel data of one paintable layer. Returned
// images have bounds in canvas coordinates.
type Pixels interface {
	// Composite renders the layer in isolation with its own opacity applied.
	Composite() (image.Image, error)
	// Raster returns the raw layer pixels.
	Raster() (image.Image, error)
}

// ChannelSource is implemented by layers whose pixels can also be rebuilt
// from the raw colour and alpha channels of the document. Only whole
// document flattening reads it.
type ChannelSource interface {
	Channels() (image.Image, error)
}

// Node is a group or paintable layer of a source document.
type Node struct {
	Name      string
	Group     bool
	Visible   bool
	Opacity   uint8
	BlendMode string
	// Rect is the layer's extent on the canvas. Zero for groups.
	Rect image.Rectangle
	// Children are ordered bottom to top.
	Children []*Node
	Pixels   Pixels
}

// Document is a parsed layered source file.
type Document struct {
	Size      image.Point
	ColorMode string
	Source    string
	// Root holds the top-level nodes, bottom to top.
	Root []*Node
}

// Open parses the source document at path. The reader is chosen by file
// extension: .psd or .ora.
func Open(path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenDocument, err)
	}
	var (
		doc *Document
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".psd", ".psb":
		doc, err = openPSD(path)
	case ".ora":
		doc, err = openORA(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDocument, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenDocument, path, err)
	}
	return doc, nil
}

// Walk calls fn for every node depth-first, parents before children.
func (d *Document) Walk(fn func(n *Node)) {
	var visit func(nodes []*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			fn(n)
			visit(n.Children)
		}
	}
	visit(d.Root)
}

// placeAt copies img into a buffer whose bounds are rect.
func placeAt(img image.Image, rect image.Rectangle) *image.NRGBA {
	out := image.NewNRGBA(rect)
	draw.Draw(out, rect, img, img.Bounds().Min, draw.Src)
	return out
}
