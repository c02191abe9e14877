package mascotlayer

import (
	"encoding/json"
	"fmt"
	"image/jpeg"
	"os"
)

// Accessory is a boolean pseudo-parameter that toggles one layer outside the
// radio group mechanism.
type Accessory struct {
	Param string `json:"param"`
	Layer string `json:"layer"`
}

// Profile is the per-deployment vocabulary that maps API parameters onto the
// radio groups of a layer store.
type Profile struct {
	// Parameter name -> candidate radio groups, scanned in order.
	Groups map[string][]string `json:"groups"`
	// Values used for parameters missing from a request.
	Defaults map[string]string `json:"defaults"`
	// Optional accessory toggle.
	Accessory Accessory `json:"accessory"`
	// Layer painted when resolution yields nothing at all.
	FallbackLayer string `json:"fallback_layer"`
}

// ZundamonProfile returns the profile matching the Zundamon PSD layer set.
func ZundamonProfile() Profile {
	return Profile{
		Groups: map[string][]string{
			"head_direction":      {"頭_上向き", "頭_正面向き"},
			"right_arm":           {"右腕"},
			"left_arm":            {"左腕"},
			"edamame":             {"枝豆"},
			"face_color":          {"顔色"},
			"expression_mouth":    {"口"},
			"expression_eyes":     {"目"},
			"expression_eyebrows": {"眉"},
		},
		Defaults: map[string]string{
			"head_direction":        "正面向き",
			"right_arm":             "腰",
			"left_arm":              "腰",
			"edamame":               "通常",
			"face_color":            "ほっぺ基本",
			"expression_mouth":      "ほう",
			"expression_eyes":       "基本目",
			"expression_eyebrows":   "怒り眉",
			"something_like_shippo": "true",
		},
		Accessory: Accessory{
			Param: "something_like_shippo",
			Layer: "尻尾のような何か",
		},
		FallbackLayer: "base_body",
	}
}

// LoadProfile reads a JSON profile. Missing fields keep the Zundamon values.
func LoadProfile(path string) (Profile, error) {
	p := ZundamonProfile()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	var in Profile
	if err := json.Unmarshal(data, &in); err != nil {
		return p, fmt.Errorf("decode profile %s: %w", path, err)
	}
	if in.Groups != nil {
		p.Groups = in.Groups
	}
	if in.Defaults != nil {
		p.Defaults = in.Defaults
	}
	if in.Accessory.Param != "" {
		p.Accessory = in.Accessory
	}
	if in.FallbackLayer != "" {
		p.FallbackLayer = in.FallbackLayer
	}
	return p, nil
}

// groupsOf returns the candidate radio groups for a parameter.
func (p Profile) groupsOf(param string) []string {
	return p.Groups[param]
}

type Options struct {
	// Parameter vocabulary for the Resolver.
	Profile Profile
	// Hex colour the JPEG output is flattened onto.
	Background string
	// JPEG quality, 1-100.
	JPEGQuality int
	// Metadata file name inside the layer directory.
	MetadataFile string
}

func DefaultOptions() Options {
	return Options{
		Profile:      ZundamonProfile(),
		Background:   "#ffffff",
		JPEGQuality:  jpeg.DefaultQuality,
		MetadataFile: MetadataFile,
	}
}
