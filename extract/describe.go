package extract

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/setanarut/mascotlayer"
)

// StructureFile is the default output name of an analysis.
const StructureFile = "zundamon_psd_structure.json"

// Authoring-tool extensions recognised in layer names.
const (
	ExtRadioButton  = "radio_button"
	ExtForceVisible = "force_visible"
	ExtFlipX        = "flip_x"
	ExtFlipY        = "flip_y"
	ExtFlipXY       = "flip_xy"
)

// LayerInfo describes one node of the source tree.
type LayerInfo struct {
	Name       string                   `json:"name"`
	Type       string                   `json:"type"`
	Visible    bool                     `json:"visible"`
	Opacity    int                      `json:"opacity"`
	BlendMode  string                   `json:"blend_mode"`
	Depth      int                      `json:"depth"`
	Extensions []string                 `json:"extensions"`
	BBox       *mascotlayer.BoundingBox `json:"bbox,omitempty"`
	Children   []LayerInfo              `json:"children,omitempty"`
}

// Structure is the layer tree of a document, top-level nodes bottom to top.
type Structure struct {
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	ColorMode string      `json:"color_mode"`
	Layers    []LayerInfo `json:"layers"`
}

// Analysis is a read-only report on a source document: its tree, the radio
// groups its names declare and the request parameters they suggest.
type Analysis struct {
	Structure Structure `json:"structure"`
	// Enclosing group name -> raw member names.
	RadioGroups map[string][]string `json:"radio_groups"`
	// Suggested parameter -> marker-free values.
	APIParameters map[string][]string `json:"api_parameters"`
}

// Describe analyses doc without reading any pixel data.
func Describe(doc *Document) *Analysis {
	a := &Analysis{
		Structure: Structure{
			Width:     doc.Size.X,
			Height:    doc.Size.Y,
			ColorMode: doc.ColorMode,
			Layers:    describeNodes(doc.Root, 0),
		},
		RadioGroups:   make(map[string][]string),
		APIParameters: make(map[string][]string),
	}
	a.collectRadio(a.Structure.Layers, mascotlayer.RootGroup)
	for group, names := range a.RadioGroups {
		param := strings.ReplaceAll(strings.ToLower(group), " ", "_")
		for _, name := range names {
			v := strings.TrimLeft(name, mascotlayer.ChoiceMarker)
			if !slices.Contains(a.APIParameters[param], v) {
				a.APIParameters[param] = append(a.APIParameters[param], v)
			}
		}
	}
	return a
}

func describeNodes(nodes []*Node, depth int) []LayerInfo {
	out := make([]LayerInfo, 0, len(nodes))
	for _, n := range nodes {
		info := LayerInfo{
			Name:       n.Name,
			Type:       "pixel",
			Visible:    n.Visible,
			Opacity:    int(n.Opacity),
			BlendMode:  n.BlendMode,
			Depth:      depth,
			Extensions: extensions(n.Name),
		}
		if n.Group {
			info.Type = "group"
			info.Children = describeNodes(n.Children, depth+1)
		} else {
			info.BBox = mascotlayer.NewBoundingBox(n.Rect)
		}
		out = append(out, info)
	}
	return out
}

// extensions lists the name markers and flip suffixes of a layer name.
func extensions(name string) []string {
	ext := []string{}
	if strings.HasPrefix(name, mascotlayer.ChoiceMarker) {
		ext = append(ext, ExtRadioButton)
	}
	if strings.HasPrefix(name, mascotlayer.RequiredMarker) {
		ext = append(ext, ExtForceVisible)
	}
	switch {
	case strings.HasSuffix(name, ":flipxy"):
		ext = append(ext, ExtFlipXY)
	case strings.HasSuffix(name, ":flipx"):
		ext = append(ext, ExtFlipX)
	case strings.HasSuffix(name, ":flipy"):
		ext = append(ext, ExtFlipY)
	}
	return ext
}

func (a *Analysis) collectRadio(layers []LayerInfo, parent string) {
	for _, l := range layers {
		if slices.Contains(l.Extensions, ExtRadioButton) {
			a.RadioGroups[parent] = append(a.RadioGroups[parent], l.Name)
		}
		if l.Type == "group" {
			a.collectRadio(l.Children, l.Name)
		}
	}
}

// WriteAnalysis stores a as indented JSON with non-ASCII names kept as is.
func WriteAnalysis(path string, a *Analysis) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
