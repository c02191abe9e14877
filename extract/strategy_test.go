package extract

import (
	"errors"
	"image"
	"testing"
)

func visibility(doc *Document) map[*Node]bool {
	m := make(map[*Node]bool)
	doc.Walk(func(n *Node) { m[n] = n.Visible })
	return m
}

func sameVisibility(t *testing.T, doc *Document, want map[*Node]bool) {
	t.Helper()
	for n, v := range visibility(doc) {
		if want[n] != v {
			t.Errorf("%s visible = %v, want %v", n.Name, v, want[n])
		}
	}
}

func TestIsolateStrategy(t *testing.T) {
	target := layer("tail", image.Rect(0, 0, 2, 2), red)
	target.Visible = false
	outer := group("outer", group("inner", target))
	outer.Visible = false
	inner := outer.Children[0]
	cover := layer("cover", image.Rect(0, 0, 8, 8), blue)
	doc := testDocument(outer, cover)
	before := visibility(doc)

	img, err := IsolateStrategy(doc, Target{Node: target, Ancestors: []*Node{outer, inner}})
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds(); got != image.Rect(0, 0, 2, 2) {
		t.Errorf("bounds = %v, want 2x2 at the origin", got)
	}
	// The covering layer above the target is hidden during isolation.
	if got := img.NRGBAAt(1, 1); got != red {
		t.Errorf("pixel = %v, want %v", got, red)
	}
	sameVisibility(t, doc, before)
}

func TestIsolateStrategyRestoresOnFailure(t *testing.T) {
	empty := &Node{Name: "clear", Visible: false, Opacity: 255, Rect: image.Rect(0, 0, 2, 2),
		Pixels: imagePixels{img: image.NewNRGBA(image.Rect(0, 0, 2, 2))}}
	broken := &Node{Name: "broken", Visible: true, Opacity: 255, Rect: image.Rect(0, 0, 2, 2), Pixels: panicPixels{}}
	other := layer("other", image.Rect(0, 0, 8, 8), blue)
	other.Visible = false

	t.Run("transparent", func(t *testing.T) {
		doc := testDocument(empty, other)
		before := visibility(doc)
		if _, err := IsolateStrategy(doc, Target{Node: empty}); !errors.Is(err, ErrEmptyLayer) {
			t.Errorf("err = %v, want ErrEmptyLayer", err)
		}
		sameVisibility(t, doc, before)
	})

	t.Run("panic", func(t *testing.T) {
		doc := testDocument(broken, other)
		before := visibility(doc)
		if _, err := IsolateStrategy(doc, Target{Node: broken}); err == nil {
			t.Error("expected an error")
		}
		sameVisibility(t, doc, before)
	})

	t.Run("empty extent", func(t *testing.T) {
		n := &Node{Name: "nothing", Visible: true}
		if _, err := IsolateStrategy(testDocument(n), Target{Node: n}); !errors.Is(err, ErrEmptyLayer) {
			t.Errorf("err = %v, want ErrEmptyLayer", err)
		}
	})
}

func TestRun(t *testing.T) {
	n := layer("x", image.Rect(2, 2, 4, 4), green)
	doc := testDocument(n)
	errFirst := errors.New("first")
	fail := func(*Document, Target) (*image.NRGBA, error) { return nil, errFirst }

	img, name, err := Run([]Strategy{{"fail", fail}, {"raster", RasterStrategy}}, doc, Target{Node: n})
	if err != nil {
		t.Fatal(err)
	}
	if name != "raster" || img.Bounds() != image.Rect(0, 0, 2, 2) || img.NRGBAAt(0, 0) != green {
		t.Errorf("Run() = %v %v %v", name, img.Bounds(), img.NRGBAAt(0, 0))
	}

	_, _, err = Run([]Strategy{{"fail", fail}, {"fail again", fail}}, doc, Target{Node: n})
	if !errors.Is(err, errFirst) {
		t.Errorf("Run() = %v, want joined failures", err)
	}
	if _, _, err := Run(nil, doc, Target{Node: n}); err == nil {
		t.Error("Run(nil) succeeded")
	}
}

func TestCompositeStrategyNoPixels(t *testing.T) {
	n := &Node{Name: "g", Rect: image.Rect(0, 0, 1, 1)}
	if _, err := CompositeStrategy(testDocument(n), Target{Node: n}); !errors.Is(err, ErrNoPixels) {
		t.Errorf("err = %v, want ErrNoPixels", err)
	}
}

func TestFlatten(t *testing.T) {
	half := layer("half", image.Rect(0, 0, 1, 1), green)
	half.Opacity = 128
	hidden := layer("hidden", image.Rect(0, 0, 8, 8), blue)
	hidden.Visible = false
	doc := testDocument(layer("base", image.Rect(0, 0, 2, 2), red), group("g", half), hidden)

	img := Flatten(doc)
	if got := img.Bounds(); got != image.Rect(0, 0, 8, 8) {
		t.Fatalf("bounds = %v", got)
	}
	if got := img.NRGBAAt(1, 1); got != red {
		t.Errorf("(1,1) = %v, want %v", got, red)
	}
	if got := img.NRGBAAt(0, 0); got.A != 255 || got.R < 126 || got.R > 128 || got.G < 127 || got.G > 129 {
		t.Errorf("(0,0) = %v, want an even red/green mix", got)
	}
	if got := img.NRGBAAt(5, 5).A; got != 0 {
		t.Errorf("hidden layer painted: alpha %d", got)
	}
}

var errUnreadable = errors.New("unreadable layer data")

// channelPixels is a layer only its channel planes can rebuild.
type channelPixels struct{ img image.Image }

func (channelPixels) Composite() (image.Image, error)  { return nil, errUnreadable }
func (channelPixels) Raster() (image.Image, error)     { return nil, errUnreadable }
func (p channelPixels) Channels() (image.Image, error) { return p.img, nil }

func TestRunFallsBackToChannels(t *testing.T) {
	r := image.Rect(2, 2, 4, 4)
	n := &Node{Name: "tail", Visible: true, Opacity: 255, Rect: r, Pixels: channelPixels{img: solid(r, green)}}
	doc := testDocument(n, layer("cover", image.Rect(0, 0, 8, 8), blue))

	img, name, err := Run(DefaultStrategies, doc, Target{Node: n})
	if err != nil {
		t.Fatal(err)
	}
	if name != "isolate" {
		t.Errorf("strategy = %q, want isolate", name)
	}
	if img.Bounds() != image.Rect(0, 0, 2, 2) || img.NRGBAAt(1, 1) != green {
		t.Errorf("isolated image = %v %v, want 2x2 green", img.Bounds(), img.NRGBAAt(1, 1))
	}
}

func TestRunWithoutChannelsFails(t *testing.T) {
	r := image.Rect(2, 2, 4, 4)
	n := &Node{Name: "tail", Visible: true, Opacity: 255, Rect: r, Pixels: imagePixels{err: errUnreadable}}

	_, _, err := Run(DefaultStrategies, testDocument(n), Target{Node: n})
	if !errors.Is(err, errUnreadable) || !errors.Is(err, ErrEmptyLayer) {
		t.Errorf("Run() = %v, want the reader error and an empty isolate", err)
	}
}
