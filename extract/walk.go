package extract

import (
	"fmt"
	"slices"

	"github.com/setanarut/mascotlayer"
	"gonum.org/v1/gonum/floats"
)

// nominalLayerBytes is the size estimate used for layers without extent.
const nominalLayerBytes = 100 * 1024

// Entry is one paintable layer scheduled for extraction.
type Entry struct {
	ID   string
	Node *Node
	// Ancestors is the chain of enclosing groups, outermost first.
	Ancestors []*Node
}

// Plan is the result of analysing a document: the layer store it will
// produce and the layers to extract, in traversal order.
type Plan struct {
	Store     *mascotlayer.Store
	Entries   []Entry
	Groups    int
	Conflicts []string
}

// tally counts what a traversal has seen so far. The layer count doubles as
// the next z-index.
type tally struct {
	layers  int
	groups  int
	choices int
}

type analyzer struct {
	choiceGroups map[string]bool
	plan         *Plan
}

// Analyze walks doc depth-first and computes the metadata of every layer
// without touching pixel data.
func Analyze(doc *Document, opts Options) *Plan {
	a := &analyzer{
		choiceGroups: make(map[string]bool, len(opts.ChoiceGroups)),
		plan: &Plan{
			Store: mascotlayer.NewStore(mascotlayer.DocumentInfo{
				Width:      doc.Size.X,
				Height:     doc.Size.Y,
				ColorMode:  doc.ColorMode,
				SourceFile: doc.Source,
			}),
		},
	}
	for _, g := range opts.ChoiceGroups {
		a.choiceGroups[g] = true
	}

	var t tally
	for _, n := range doc.Root {
		t = a.visit(n, mascotlayer.RootGroup, nil, t)
	}
	a.plan.Groups = t.groups

	log := mascotlayer.Logger()
	log.Info("analysed layer structure",
		"layers", t.layers,
		"groups", t.groups,
		"choices", t.choices,
		"radio_groups", len(a.plan.Store.RadioGroups))
	return a.plan
}

// visit records n and its descendants and returns the updated tally.
func (a *analyzer) visit(n *Node, group string, ancestors []*Node, t tally) tally {
	if n.Group {
		t.groups++
		inner := slices.Concat(ancestors, []*Node{n})
		name := mascotlayer.StripMarkers(n.Name)
		for _, child := range n.Children {
			t = a.visit(child, name, inner, t)
		}
		return t
	}

	store := a.plan.Store
	id := a.uniqueID(Identifier(n.Name, group))
	meta := &mascotlayer.LayerMetadata{
		OriginalName: n.Name,
		File:         FilePath(id, group),
		BBox:         mascotlayer.NewBoundingBox(n.Rect),
		ZIndex:       t.layers,
		Visible:      n.Visible,
		Opacity:      int(n.Opacity),
		BlendMode:    n.BlendMode,
		Required:     isRequired(n.Name),
		ParentGroup:  group,
	}

	choice := isChoice(n.Name) || a.choiceGroups[group]
	switch {
	case choice && meta.Required:
		a.plan.Conflicts = append(a.plan.Conflicts, id)
		mascotlayer.Logger().Warn("layer is both required and a choice; keeping it required",
			"layer", id, "name", n.Name, "group", group)
	case choice:
		meta.RadioGroup = group
		store.RadioGroups[group] = append(store.RadioGroups[group], id)
		t.choices++
	}

	store.Layers[id] = meta
	store.CompositionOrder = append(store.CompositionOrder, id)
	a.plan.Entries = append(a.plan.Entries, Entry{ID: id, Node: n, Ancestors: ancestors})
	t.layers++
	return t
}

// uniqueID appends _2, _3, ... to identifiers that are already taken.
func (a *analyzer) uniqueID(id string) string {
	if _, taken := a.plan.Store.Layers[id]; !taken {
		return id
	}
	for i := 2; ; i++ {
		alt := fmt.Sprintf("%s_%d", id, i)
		if _, taken := a.plan.Store.Layers[alt]; !taken {
			return alt
		}
	}
}

// EstimatedBytes estimates the total size of the extracted fragments.
func (p *Plan) EstimatedBytes(bytesPerPixel float64) int64 {
	sizes := make([]float64, len(p.Entries))
	for i, e := range p.Entries {
		if r := e.Node.Rect; !r.Empty() {
			sizes[i] = float64(r.Dx()*r.Dy()) * bytesPerPixel
		} else {
			sizes[i] = nominalLayerBytes
		}
	}
	return int64(floats.Sum(sizes))
}

// drop removes a layer from the store, keeping the store's references
// consistent.
func (p *Plan) drop(id string) {
	s := p.Store
	meta := s.Layers[id]
	delete(s.Layers, id)
	s.CompositionOrder = slices.DeleteFunc(s.CompositionOrder, func(x string) bool { return x == id })
	if meta == nil || meta.RadioGroup == "" {
		return
	}
	members := slices.DeleteFunc(s.RadioGroups[meta.RadioGroup], func(x string) bool { return x == id })
	if len(members) == 0 {
		delete(s.RadioGroups, meta.RadioGroup)
	} else {
		s.RadioGroups[meta.RadioGroup] = members
	}
}
