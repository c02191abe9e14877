package extract

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/setanarut/mascotlayer/utils"
)

// SwatchFile lists each extracted layer's palette as hex colours.
const SwatchFile = "swatches.json"

// writeSwatches stores the palettes next to the layer metadata, one strip
// image per layer under swatches/.
func writeSwatches(dir string, swatches map[string][]colorful.Color) error {
	hex := make(map[string][]string, len(swatches))
	for id, palette := range swatches {
		if len(palette) == 0 {
			continue
		}
		hex[id] = utils.HexPalette(palette)
		if err := utils.SavePalette(palette, 32, filepath.Join(dir, "swatches", id+".png")); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(hex, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, SwatchFile), data, 0o644)
}
