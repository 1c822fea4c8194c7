package world

import "testing"

func TestConfigNormalized(t *testing.T) {
	cfg := Config{Seed: "  padded  ", Width: -3, Height: 0, Depth: 10, OreVeins: -1, VeinSize: 0}
	normalized := cfg.Normalized()

	if normalized.Seed != "padded" {
		t.Fatalf("expected trimmed seed, got %q", normalized.Seed)
	}
	if normalized.Width != DefaultWidth {
		t.Fatalf("expected default width, got %d", normalized.Width)
	}
	if normalized.Height != DefaultHeight {
		t.Fatalf("expected default height, got %d", normalized.Height)
	}
	if normalized.Depth != 10 {
		t.Fatalf("expected explicit depth preserved, got %d", normalized.Depth)
	}
	if normalized.OreVeins != 0 {
		t.Fatalf("expected negative vein count clamped, got %d", normalized.OreVeins)
	}
	if normalized.VeinSize != DefaultVeinSize {
		t.Fatalf("expected default vein size, got %d", normalized.VeinSize)
	}
}

func TestDefaultConfigIsNormalized(t *testing.T) {
	if got := DefaultConfig().Normalized(); got != DefaultConfig() {
		t.Fatalf("expected default config to be stable under normalization, got %+v", got)
	}
}

func TestDimensionsFallBackToDefaults(t *testing.T) {
	w, h, d := Dimensions(Config{})
	if w != DefaultWidth || h != DefaultHeight || d != DefaultDepth {
		t.Fatalf("expected default dimensions, got %d %d %d", w, h, d)
	}
}
