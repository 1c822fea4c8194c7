package world

import "strings"

const (
	DefaultSeed     = "quarry"
	DefaultWidth    = 48
	DefaultHeight   = 16
	DefaultDepth    = 48
	DefaultVeinSize = 4
)

type Config struct {
	Seed     string `json:"seed"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Depth    int    `json:"depth"`
	OreVeins int    `json:"oreVeins"`
	VeinSize int    `json:"veinSize"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.Width <= 0 {
		normalized.Width = DefaultWidth
	}
	if normalized.Height <= 0 {
		normalized.Height = DefaultHeight
	}
	if normalized.Depth <= 0 {
		normalized.Depth = DefaultDepth
	}
	if normalized.OreVeins < 0 {
		normalized.OreVeins = 0
	}
	if normalized.VeinSize <= 0 {
		normalized.VeinSize = DefaultVeinSize
	}
	return normalized
}

func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

func DefaultConfig() Config {
	return Config{
		Seed:     DefaultSeed,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		Depth:    DefaultDepth,
		OreVeins: 0,
		VeinSize: DefaultVeinSize,
	}
}

func Width(cfg Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	return DefaultWidth
}

func Height(cfg Config) int {
	if cfg.Height > 0 {
		return cfg.Height
	}
	return DefaultHeight
}

func Depth(cfg Config) int {
	if cfg.Depth > 0 {
		return cfg.Depth
	}
	return DefaultDepth
}

func Dimensions(cfg Config) (int, int, int) {
	return Width(cfg), Height(cfg), Depth(cfg)
}
