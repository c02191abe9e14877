package mascotlayer

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/setanarut/mascotlayer/utils"
)

// Rendering is an encoded composite image.
type Rendering struct {
	Data     []byte
	Format   Format
	MIMEType string
	// Layers lists the identifiers that were requested, in paint order.
	Layers []string
}

// Compositor stacks extracted layers into mascot images. A Compositor is
// safe for concurrent use: every compose call paints its own canvas and
// only the layer cache is shared.
type Compositor struct {
	dir        string
	opts       Options
	store      *Store
	resolver   *Resolver
	cache      *LayerCache
	background colorful.Color
	err        error
}

// NewCompositor loads the layer store found in dir. A compositor whose store
// failed to load is still returned, but every compose call fails with
// ErrUnavailable; see Ready.
func NewCompositor(dir string, opts Options) *Compositor {
	name := opts.MetadataFile
	if name == "" {
		name = MetadataFile
	}
	path := filepath.Join(dir, name)
	store, err := LoadStore(path)
	if err != nil {
		Logger().Error("failed to load layer metadata", "path", path, "error", err)
		return &Compositor{dir: dir, opts: opts, err: err}
	}
	Logger().Info("layer metadata loaded",
		"layers", len(store.Layers),
		"canvas", fmt.Sprintf("%dx%d", store.Document.Width, store.Document.Height))
	return NewCompositorFromStore(dir, store, opts)
}

// NewCompositorFromStore builds a compositor around an already loaded store.
// Layer files are resolved relative to dir.
func NewCompositorFromStore(dir string, store *Store, opts Options) *Compositor {
	c := &Compositor{dir: dir, opts: opts, store: store}
	if store == nil {
		c.err = fmt.Errorf("%w: no store", ErrInvalidStore)
		return c
	}
	if err := store.Validate(); err != nil {
		c.err = err
		return c
	}
	c.background = colorful.Color{R: 1, G: 1, B: 1}
	if opts.Background != "" {
		bg, err := colorful.Hex(opts.Background)
		if err != nil {
			c.err = fmt.Errorf("background colour %q: %w", opts.Background, err)
			return c
		}
		c.background = bg
	}
	if c.opts.JPEGQuality <= 0 || c.opts.JPEGQuality > 100 {
		c.opts.JPEGQuality = jpeg.DefaultQuality
	}
	c.resolver = NewResolver(store, opts.Profile)
	c.cache = NewLayerCache(c.loadLayer)
	return c
}

// Ready returns nil when the compositor can serve requests.
func (c *Compositor) Ready() error {
	if c.err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, c.err)
	}
	return nil
}

// Store returns the loaded layer store, or nil when unavailable.
func (c *Compositor) Store() *Store { return c.store }

// Cache returns the layer image cache.
func (c *Compositor) Cache() *LayerCache { return c.cache }

// Resolve maps parameters to layer identifiers without painting.
func (c *Compositor) Resolve(params Params) ([]string, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	return c.resolver.Resolve(params), nil
}

// Compose resolves params and encodes the composite in format.
func (c *Compositor) Compose(params Params, format Format) (*Rendering, error) {
	ids, err := c.Resolve(params)
	if err != nil {
		return nil, err
	}
	return c.ComposeLayers(ids, format)
}

// ComposeLayers paints the given layers and encodes the result. Layers that
// cannot be loaded are skipped. An empty list paints the profile's fallback
// layer.
func (c *Compositor) ComposeLayers(ids []string, format Format) (*Rendering, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	if format != PNG && format != JPEG {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if len(ids) == 0 {
		Logger().Warn("no layers resolved, using fallback", "layer", c.opts.Profile.FallbackLayer)
		ids = []string{c.opts.Profile.FallbackLayer}
	}

	order := c.paintOrder(ids)
	canvas := c.Paint(order)

	data, err := c.encode(canvas, format)
	if err != nil {
		return nil, fmt.Errorf("encode %v: %w", format, err)
	}
	Logger().Info("composed image", "format", format.String(), "layers", len(order), "bytes", len(data))
	return &Rendering{
		Data:     data,
		Format:   format,
		MIMEType: format.MIMEType(),
		Layers:   order,
	}, nil
}

// paintOrder returns ids in the store's composition order first, followed by
// the layers the order does not mention, sorted by z-index and identifier.
func (c *Compositor) paintOrder(ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	order := make([]string, 0, len(want))
	for _, id := range c.store.CompositionOrder {
		if want[id] {
			order = append(order, id)
			delete(want, id)
		}
	}
	rest := make([]string, 0, len(want))
	for id := range want {
		rest = append(rest, id)
	}
	c.store.sortByDepth(rest)
	return append(order, rest...)
}

// Paint composites the layers, bottom to top, onto a new transparent canvas.
func (c *Compositor) Paint(order []string) *Canvas {
	size := c.store.Canvas()
	canvas := NewCanvas(size.X, size.Y)
	for _, id := range order {
		img, err := c.cache.Get(id)
		if err != nil {
			Logger().Warn("skipping layer", "layer", id, "error", err)
			continue
		}
		canvas.Draw(img, c.placement(id, img), 1)
		Logger().Debug("composited layer", "layer", id)
	}
	return canvas
}

// placement returns the canvas position of a layer's top-left corner. Layers
// without a bounding box are centred.
func (c *Compositor) placement(id string, img *image.NRGBA) image.Point {
	if l := c.store.Layer(id); l != nil && l.BBox != nil {
		return image.Pt(l.BBox.Left, l.BBox.Top)
	}
	size := img.Bounds().Size()
	return image.Pt(floorDiv(c.store.Document.Width-size.X, 2), floorDiv(c.store.Document.Height-size.Y, 2))
}

func (c *Compositor) loadLayer(id string) (*image.NRGBA, error) {
	l := c.store.Layer(id)
	if l == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, id)
	}
	return utils.ReadNRGBA(filepath.Join(c.dir, filepath.FromSlash(l.File)))
}

func (c *Compositor) encode(canvas *Canvas, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case JPEG:
		err := jpeg.Encode(&buf, canvas.Flatten(c.background), &jpeg.Options{Quality: c.opts.JPEGQuality})
		return buf.Bytes(), err
	default:
		err := png.Encode(&buf, canvas.NRGBA())
		return buf.Bytes(), err
	}
}

// Layers returns every layer identifier of the store in paint order.
func (c *Compositor) Layers() []string {
	if c.store == nil {
		return nil
	}
	ids := make([]string, 0, len(c.store.Layers))
	for id := range c.store.Layers {
		ids = append(ids, id)
	}
	c.store.sortByDepth(ids)
	return ids
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
