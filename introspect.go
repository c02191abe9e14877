package mascotlayer

import (
	"slices"
	"strings"
)

// AvailableOptions lists the accepted values of every parameter, so callers
// can build requests without guessing. Values are the marker-free source
// names of each radio group's members; a parameter spanning several groups
// lists the members of all of them. Radio groups the profile does not name
// are exposed under their lower-cased group name. The accessory parameter
// accepts "true" and "false".
func (c *Compositor) AvailableOptions() (map[string][]string, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	return AvailableOptions(c.store, c.opts.Profile), nil
}

// AvailableOptions is the store-level form of Compositor.AvailableOptions.
func AvailableOptions(store *Store, profile Profile) map[string][]string {
	paramOf := make(map[string]string)
	for param, groups := range profile.Groups {
		for _, g := range groups {
			paramOf[g] = param
		}
	}

	groups := make([]string, 0, len(store.RadioGroups))
	for g := range store.RadioGroups {
		groups = append(groups, g)
	}
	slices.Sort(groups)

	out := make(map[string][]string)
	for _, g := range groups {
		param, ok := paramOf[g]
		if !ok {
			param = strings.ReplaceAll(strings.ToLower(g), " ", "_")
		}
		for _, id := range store.RadioGroups[g] {
			value := OptionValue(store.Layer(id), id)
			if !slices.Contains(out[param], value) {
				out[param] = append(out[param], value)
			}
		}
	}
	if profile.Accessory.Param != "" {
		out[profile.Accessory.Param] = []string{"true", "false"}
	}
	return out
}

// OptionValue is the request value advertised for a layer.
func OptionValue(l *LayerMetadata, id string) string {
	if l == nil || l.OriginalName == "" {
		return strings.ReplaceAll(id, "_", " ")
	}
	return StripMarkers(l.OriginalName)
}
