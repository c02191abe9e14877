package mascotlayer

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/setanarut/mascotlayer/utils"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

type fixtureLayer struct {
	id, name, group string
	radio           bool
	required        bool
	rect            image.Rectangle
	noBBox          bool
	c               color.NRGBA
}

// fixtureLayers are listed bottom to top on an 8x8 canvas.
var fixtureLayers = []fixtureLayer{
	{id: "base_body", name: "!base body", group: RootGroup, required: true, rect: image.Rect(2, 2, 6, 6), c: red},
	{id: "尻尾のような何か", name: "尻尾のような何か", group: RootGroup, rect: image.Rect(0, 0, 1, 1), c: green},
	{id: "目_基本目", name: "*基本目", group: "目", radio: true, rect: image.Rect(3, 3, 5, 4), c: blue},
	{id: "目_閉じ目", name: "*閉じ目", group: "目", radio: true, rect: image.Rect(3, 3, 5, 4), c: green},
	{id: "口_ほう", name: "*ほう", group: "口", radio: true, rect: image.Rect(3, 4, 5, 5), c: blue},
	{id: "口_あは", name: "*あは", group: "口", radio: true, rect: image.Rect(3, 4, 5, 5), c: green},
	{id: "glasses", name: "glasses", group: RootGroup, rect: image.Rect(2, 3, 6, 4), c: blue},
	{id: "badge", name: "badge", group: RootGroup, rect: image.Rect(0, 0, 2, 2), noBBox: true, c: green},
}

func testProfile() Profile {
	return Profile{
		Groups: map[string][]string{
			"expression_mouth": {"口"},
			"expression_eyes":  {"目"},
		},
		Defaults: map[string]string{
			"expression_mouth":      "ほう",
			"expression_eyes":       "基本目",
			"something_like_shippo": "true",
		},
		Accessory:     Accessory{Param: "something_like_shippo", Layer: "尻尾のような何か"},
		FallbackLayer: "base_body",
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Profile = testProfile()
	return opts
}

// writeFixture writes the layer fragments and metadata to a temporary
// directory and returns it with the store.
func writeFixture(t *testing.T) (string, *Store) {
	t.Helper()
	dir := t.TempDir()
	s := NewStore(DocumentInfo{Width: 8, Height: 8, ColorMode: "RGB", SourceFile: "fixture.psd"})
	for z, l := range fixtureLayers {
		file := "base/" + l.id + ".png"
		if l.group != RootGroup {
			file = l.group + "/" + l.id + ".png"
		}
		meta := &LayerMetadata{
			OriginalName: l.name,
			File:         file,
			ZIndex:       z,
			Visible:      true,
			Opacity:      255,
			BlendMode:    "normal",
			Required:     l.required,
			ParentGroup:  l.group,
		}
		if !l.noBBox {
			meta.BBox = NewBoundingBox(l.rect)
		}
		if l.radio {
			meta.RadioGroup = l.group
			s.RadioGroups[l.group] = append(s.RadioGroups[l.group], l.id)
		}
		s.Layers[l.id] = meta
		s.CompositionOrder = append(s.CompositionOrder, l.id)

		img := solid(l.rect.Dx(), l.rect.Dy(), l.c)
		if err := utils.SaveImage(img, filepath.Join(dir, filepath.FromSlash(file))); err != nil {
			t.Fatal(err)
		}
	}
	if err := SaveStore(filepath.Join(dir, MetadataFile), s); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadStore(filepath.Join(dir, MetadataFile))
	if err != nil {
		t.Fatal(err)
	}
	return dir, loaded
}
