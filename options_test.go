package mascotlayer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	doc := `{"groups": {"hat": ["帽子"]}, "fallback_layer": "body"}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string][]string{"hat": {"帽子"}}, p.Groups); diff != "" {
		t.Errorf("Groups mismatch (-want +got):\n%s", diff)
	}
	if p.FallbackLayer != "body" {
		t.Errorf("FallbackLayer = %q", p.FallbackLayer)
	}
	// Unset fields keep the built-in values.
	def := ZundamonProfile()
	if diff := cmp.Diff(def.Defaults, p.Defaults); diff != "" {
		t.Errorf("Defaults mismatch (-want +got):\n%s", diff)
	}
	if p.Accessory != def.Accessory {
		t.Errorf("Accessory = %+v", p.Accessory)
	}
}

func TestZundamonProfileDefaultsCoverGroups(t *testing.T) {
	p := ZundamonProfile()
	for param := range p.Groups {
		if p.Defaults[param] == "" {
			t.Errorf("parameter %q has no default", param)
		}
	}
	if p.Defaults[p.Accessory.Param] != "true" {
		t.Errorf("accessory default = %q, want true", p.Defaults[p.Accessory.Param])
	}
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger is enabled")
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	SetLogger(slog.New(h))
	if !Logger().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("custom logger not installed")
	}
	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) did not restore the silent logger")
	}
}
