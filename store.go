package mascotlayer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// MetadataFile is the name of the store document inside a layer directory.
const MetadataFile = "layer_metadata.json"

// StoreVersion is written into every store produced by the extractor.
const StoreVersion = "2.0"

// RootGroup is the parent_group value of top-level layers.
const RootGroup = "root"

// Name markers used by layered source documents.
const (
	ChoiceMarker   = "*"
	RequiredMarker = "!"
)

// StripMarkers removes leading choice and required markers from a name.
func StripMarkers(name string) string {
	return strings.TrimLeft(name, ChoiceMarker+RequiredMarker)
}

// BoundingBox is a layer's placement in canvas pixel coordinates.
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewBoundingBox returns nil for empty rectangles.
func NewBoundingBox(r image.Rectangle) *BoundingBox {
	if r.Empty() {
		return nil
	}
	return &BoundingBox{
		Left:   r.Min.X,
		Top:    r.Min.Y,
		Right:  r.Max.X,
		Bottom: r.Max.Y,
		Width:  r.Dx(),
		Height: r.Dy(),
	}
}

// Rect converts the box back to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// LayerMetadata describes one extracted paintable region.
type LayerMetadata struct {
	OriginalName string       `json:"original_name"`
	File         string       `json:"file"`
	BBox         *BoundingBox `json:"bbox"`
	ZIndex       int          `json:"z_index"`
	Visible      bool         `json:"visible"`
	Opacity      int          `json:"opacity"`
	BlendMode    string       `json:"blend_mode"`
	Required     bool         `json:"required"`
	ParentGroup  string       `json:"parent_group"`
	RadioGroup   string       `json:"radio_group,omitempty"`
}

// DocumentInfo records the source document the store was extracted from.
type DocumentInfo struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	ColorMode  string `json:"color_mode"`
	SourceFile string `json:"source_file"`
}

// Store is the layer metadata document shared by the extractor and the
// compositor. It is read-only once loaded.
type Store struct {
	Version          string                    `json:"version"`
	Document         DocumentInfo              `json:"psd_info"`
	Layers           map[string]*LayerMetadata `json:"layers"`
	RadioGroups      map[string][]string       `json:"radio_groups"`
	CompositionOrder []string                  `json:"composition_order"`

	position map[string]int
}

// NewStore returns an empty store for a canvas of the given size.
func NewStore(info DocumentInfo) *Store {
	return &Store{
		Version:          StoreVersion,
		Document:         info,
		Layers:           make(map[string]*LayerMetadata),
		RadioGroups:      make(map[string][]string),
		CompositionOrder: []string{},
	}
}

// Canvas returns the output canvas size.
func (s *Store) Canvas() image.Point {
	return image.Pt(s.Document.Width, s.Document.Height)
}

// Layer returns the metadata for id, or nil.
func (s *Store) Layer(id string) *LayerMetadata {
	return s.Layers[id]
}

// Required returns the identifiers of every required layer in z order.
func (s *Store) Required() []string {
	var ids []string
	for id, l := range s.Layers {
		if l.Required {
			ids = append(ids, id)
		}
	}
	s.sortByDepth(ids)
	return ids
}

// Position returns the index of id in the composition order.
func (s *Store) Position(id string) (int, bool) {
	if s.position == nil {
		p := slices.Index(s.CompositionOrder, id)
		return p, p >= 0
	}
	p, ok := s.position[id]
	return p, ok
}

// index caches composition positions. Called once the store stops changing.
func (s *Store) index() {
	s.position = make(map[string]int, len(s.CompositionOrder))
	for i, id := range s.CompositionOrder {
		if _, seen := s.position[id]; !seen {
			s.position[id] = i
		}
	}
}

// sortByDepth orders ids by composition position, then z-index, then name.
// Identifiers outside the composition order sort after those inside it.
func (s *Store) sortByDepth(ids []string) {
	slices.SortFunc(ids, func(a, b string) int {
		pa, oka := s.Position(a)
		pb, okb := s.Position(b)
		switch {
		case oka && okb && pa != pb:
			return pa - pb
		case oka != okb:
			if oka {
				return -1
			}
			return 1
		}
		za, zb := s.zIndex(a), s.zIndex(b)
		if za != zb {
			return za - zb
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
}

func (s *Store) zIndex(id string) int {
	if l := s.Layers[id]; l != nil {
		return l.ZIndex
	}
	return int(^uint(0) >> 1)
}

// Validate checks the referential invariants of the store.
func (s *Store) Validate() error {
	if s.Document.Width <= 0 || s.Document.Height <= 0 {
		return fmt.Errorf("%w: canvas size %dx%d", ErrInvalidStore, s.Document.Width, s.Document.Height)
	}
	for _, id := range s.CompositionOrder {
		if _, ok := s.Layers[id]; !ok {
			return fmt.Errorf("%w: composition order references unknown layer %q", ErrInvalidStore, id)
		}
	}
	for group, members := range s.RadioGroups {
		for _, id := range members {
			if _, ok := s.Layers[id]; !ok {
				return fmt.Errorf("%w: radio group %q references unknown layer %q", ErrInvalidStore, group, id)
			}
		}
	}
	return nil
}

// LoadStore reads and validates a store document.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layer metadata: %w", err)
	}
	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidStore, path, err)
	}
	if s.Layers == nil {
		s.Layers = make(map[string]*LayerMetadata)
	}
	if s.RadioGroups == nil {
		s.RadioGroups = make(map[string][]string)
	}
	for id, l := range s.Layers {
		if l == nil {
			return nil, fmt.Errorf("%w: layer %q is null", ErrInvalidStore, id)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.index()
	return &s, nil
}

// Marshal encodes the store as indented JSON. Non-ASCII names are kept as
// is. Map keys are sorted, so equal stores encode to equal bytes.
func (s *Store) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveStore writes the store to path, replacing any previous document
// atomically.
func SaveStore(path string, s *Store) error {
	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("encode layer metadata: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".layer_metadata-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
