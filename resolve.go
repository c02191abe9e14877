package mascotlayer

import (
	"slices"
	"strings"
)

// Params maps API parameter names to requested values.
type Params map[string]string

// Resolver turns request parameters into the set of layers to paint.
type Resolver struct {
	store   *Store
	profile Profile
}

// NewResolver only reads store; it may be shared between resolvers.
func NewResolver(store *Store, profile Profile) *Resolver {
	return &Resolver{store: store, profile: profile}
}

// Resolve returns the layers selected by params: every required layer, at
// most one member per radio group, the accessory when toggled on, and any
// optional non-choice layer whose identifier is passed verbatim with value
// "true". Missing parameters and values that match nothing fall back to the
// profile defaults. The result has no duplicates and is ordered by paint
// depth.
func (r *Resolver) Resolve(params Params) []string {
	sel := newSelection()
	for _, id := range r.store.Required() {
		sel.add(id)
	}

	taken := make(map[string]bool)
	for _, param := range r.parameterNames() {
		if param == r.profile.Accessory.Param {
			continue
		}
		value, ok := params[param]
		if !ok {
			value = r.profile.Defaults[param]
		}
		id, group := r.lookup(param, value, taken)
		if id == "" && ok {
			// A value that names nothing renders like an omitted parameter.
			id, group = r.lookup(param, r.profile.Defaults[param], taken)
		}
		if id == "" {
			Logger().Debug("parameter resolved to nothing", "param", param, "value", value)
			continue
		}
		taken[group] = true
		sel.add(id)
	}

	if acc := r.profile.Accessory; acc.Param != "" && acc.Layer != "" {
		value, ok := params[acc.Param]
		if !ok {
			value = r.profile.Defaults[acc.Param]
		}
		if isTrue(value) {
			sel.add(acc.Layer)
		}
	}

	for param, value := range params {
		if _, known := r.profile.Groups[param]; known || param == r.profile.Accessory.Param {
			continue
		}
		if l := r.store.Layer(param); l != nil && l.RadioGroup == "" && !l.Required && isTrue(value) {
			sel.add(param)
		}
	}

	ids := sel.list()
	r.store.sortByDepth(ids)
	return ids
}

// parameterNames lists the profile parameters, sorted so that resolution is
// independent of map iteration order.
func (r *Resolver) parameterNames() []string {
	names := make([]string, 0, len(r.profile.Groups))
	for name := range r.profile.Groups {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// lookup finds the first member of the first candidate group that matches
// value. Groups already taken by another parameter are skipped.
func (r *Resolver) lookup(param, value string, taken map[string]bool) (id, group string) {
	if value == "" {
		return "", ""
	}
	for _, g := range r.profile.groupsOf(param) {
		if taken[g] {
			continue
		}
		for _, member := range r.store.RadioGroups[g] {
			l := r.store.Layer(member)
			if l == nil {
				continue
			}
			if Match(value, l.OriginalName, member) {
				return member, g
			}
		}
	}
	return "", ""
}

func isTrue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// selection is an insertion-ordered set of layer identifiers.
type selection struct {
	seen map[string]bool
	ids  []string
}

func newSelection() *selection {
	return &selection{seen: make(map[string]bool)}
}

func (s *selection) add(id string) {
	if s.seen[id] {
		return
	}
	s.seen[id] = true
	s.ids = append(s.ids, id)
}

func (s *selection) list() []string {
	return s.ids
}
