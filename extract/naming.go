package extract

import (
	"path"
	"strings"

	"github.com/setanarut/mascotlayer"
)

var nameCleaner = strings.NewReplacer(
	"(", "", ")", "",
	"（", "", "）", "",
	"。", "",
	" ", "_", "　", "_",
	"・", "_", "、", "_",
	"/", "_", "\\", "_",
)

// cleanName strips markers and punctuation from a source name and lower-cases it.
func cleanName(name string) string {
	return strings.ToLower(nameCleaner.Replace(mascotlayer.StripMarkers(name)))
}

// Identifier derives the layer identifier from a layer name and the name of
// its enclosing group. Layers below the top level are prefixed with the
// group name and an underscore unless they already carry both.
func Identifier(name, group string) string {
	id := cleanName(name)
	if id == "" {
		id = "layer"
	}
	if group == mascotlayer.RootGroup {
		return id
	}
	prefix := cleanName(group) + "_"
	if strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}

// FilePath is the fragment path of a layer, relative to the output directory.
func FilePath(id, group string) string {
	if group == mascotlayer.RootGroup {
		return path.Join("base", id+".png")
	}
	return path.Join(cleanName(group), id+".png")
}

// markers returns the leading marker run of a raw name.
func markers(name string) string {
	return name[:len(name)-len(mascotlayer.StripMarkers(name))]
}

func isChoice(name string) bool {
	return strings.Contains(markers(name), mascotlayer.ChoiceMarker)
}

func isRequired(name string) bool {
	return strings.Contains(markers(name), mascotlayer.RequiredMarker)
}
