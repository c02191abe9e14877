package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/setanarut/mascotlayer/utils"
)

// OpenRaster (.ora) is a zip archive holding a stack.xml layer tree and one
// PNG per layer. Stacks list their children top to bottom.

const oraMimeType = "image/openraster"

type oraImage struct {
	Width  int     `xml:"w,attr"`
	Height int     `xml:"h,attr"`
	Stack  oraElem `xml:"stack"`
}

type oraElem struct {
	XMLName     xml.Name
	Name        string    `xml:"name,attr"`
	Src         string    `xml:"src,attr"`
	X           int       `xml:"x,attr"`
	Y           int       `xml:"y,attr"`
	Visibility  string    `xml:"visibility,attr"`
	Opacity     string    `xml:"opacity,attr"`
	CompositeOp string    `xml:"composite-op,attr"`
	Children    []oraElem `xml:",any"`
}

func openORA(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	if mt, ok := files["mimetype"]; ok {
		b, err := readZipFile(mt)
		if err != nil {
			return nil, err
		}
		if got := strings.TrimSpace(string(b)); got != oraMimeType {
			return nil, fmt.Errorf("unexpected mimetype %q", got)
		}
	}
	stack, ok := files["stack.xml"]
	if !ok {
		return nil, fmt.Errorf("missing stack.xml")
	}
	raw, err := readZipFile(stack)
	if err != nil {
		return nil, err
	}
	var img oraImage
	if err := xml.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("parse stack.xml: %w", err)
	}
	return &Document{
		Size:      image.Pt(img.Width, img.Height),
		ColorMode: "RGB",
		Source:    filepath.Base(path),
		Root:      oraNodes(img.Stack.Children, files),
	}, nil
}

// oraNodes converts one stack level, reversing it to bottom-to-top order.
// A layer whose PNG is missing or unreadable keeps its place in the tree with
// an empty extent; its extraction fails on its own.
func oraNodes(elems []oraElem, files map[string]*zip.File) []*Node {
	nodes := make([]*Node, 0, len(elems))
	for _, e := range slices.Backward(elems) {
		n := &Node{
			Name:      e.Name,
			Visible:   e.Visibility != "hidden",
			Opacity:   oraOpacity(e.Opacity),
			BlendMode: e.CompositeOp,
		}
		if n.BlendMode == "" {
			n.BlendMode = "svg:src-over"
		}
		switch e.XMLName.Local {
		case "stack":
			n.Group = true
			n.Children = oraNodes(e.Children, files)
		case "layer":
			f, ok := files[e.Src]
			if !ok {
				n.Pixels = brokenPixels{fmt.Errorf("missing %s", e.Src)}
				break
			}
			cfg, err := oraConfig(f)
			if err != nil {
				n.Pixels = brokenPixels{fmt.Errorf("%s: %w", e.Src, err)}
				break
			}
			n.Rect = image.Rect(e.X, e.Y, e.X+cfg.Width, e.Y+cfg.Height)
			n.Pixels = &oraPixels{file: f, rect: n.Rect, opacity: n.Opacity}
		default:
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func oraOpacity(s string) uint8 {
	if s == "" {
		return 255
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 255
	}
	return uint8(max(0, min(255, v*255+0.5)))
}

func oraConfig(f *zip.File) (image.Config, error) {
	rc, err := f.Open()
	if err != nil {
		return image.Config{}, err
	}
	defer rc.Close()
	return png.DecodeConfig(rc)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type oraPixels struct {
	file    *zip.File
	rect    image.Rectangle
	opacity uint8
}

func (p *oraPixels) decode() (image.Image, error) {
	rc, err := p.file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return png.Decode(rc)
}

func (p *oraPixels) Composite() (image.Image, error) {
	img, err := p.decode()
	if err != nil {
		return nil, err
	}
	return placeAt(utils.WithOpacity(img, p.opacity), p.rect), nil
}

func (p *oraPixels) Raster() (image.Image, error) {
	img, err := p.decode()
	if err != nil {
		return nil, err
	}
	return placeAt(img, p.rect), nil
}

// brokenPixels stands in for layer data that could not be located.
type brokenPixels struct{ err error }

func (p brokenPixels) Composite() (image.Image, error) { return nil, p.err }
func (p brokenPixels) Raster() (image.Image, error)    { return nil, p.err }
