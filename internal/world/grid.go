package world

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrOutOfBounds reports a write aimed outside the grid volume.
var ErrOutOfBounds = errors.New("world: position out of bounds")

// Grid is the bounded block store. Cells holding air are not stored; reads
// outside the volume resolve to bedrock below the floor and air everywhere
// else. All writes go through SetBlock so callers can observe the prior
// state before it is lost.
type Grid struct {
	config Config
	seed   string
	blocks map[BlockPos]BlockState
}

// NewGrid constructs a grid with normalized configuration and deterministic
// seeded terrain.
func NewGrid(cfg Config) *Grid {
	normalized := cfg.normalized()
	g := &Grid{
		config: normalized,
		seed:   normalized.Seed,
		blocks: make(map[BlockPos]BlockState),
	}
	g.generate()
	return g
}

// Config returns the normalized configuration captured at construction time.
func (g *Grid) Config() Config {
	if g == nil {
		return Config{}
	}
	return g.config
}

// Seed reports the deterministic seed applied to the grid RNG hierarchy.
func (g *Grid) Seed() string {
	if g == nil {
		return ""
	}
	return g.seed
}

// SubsystemRNG returns a deterministic RNG derived from the grid seed.
func (g *Grid) SubsystemRNG(label string) *rand.Rand {
	if g == nil {
		return NewDeterministicRNG(DefaultSeed, label)
	}
	seed := g.seed
	if seed == "" {
		seed = DefaultSeed
	}
	return NewDeterministicRNG(seed, label)
}

// InBounds reports whether the position lies inside the grid volume.
func (g *Grid) InBounds(pos BlockPos) bool {
	if g == nil {
		return false
	}
	width, height, depth := Dimensions(g.config)
	return pos.X >= 0 && pos.X < width &&
		pos.Y >= 0 && pos.Y < height &&
		pos.Z >= 0 && pos.Z < depth
}

// BlockAt reads the state at the position. Out-of-bounds reads resolve to
// bedrock below the floor and air above or beside the volume.
func (g *Grid) BlockAt(pos BlockPos) BlockState {
	if g == nil {
		return Air
	}
	if !g.InBounds(pos) {
		if pos.Y < 0 {
			return Bedrock
		}
		return Air
	}
	if state, ok := g.blocks[pos]; ok {
		return state
	}
	return Air
}

// SetBlock writes the state at the position and returns the state it
// replaced. Out-of-bounds writes fail with ErrOutOfBounds and leave the grid
// untouched.
func (g *Grid) SetBlock(pos BlockPos, next BlockState) (BlockState, error) {
	if g == nil || !g.InBounds(pos) {
		return BlockState{}, fmt.Errorf("%w: %v", ErrOutOfBounds, pos)
	}
	prior := g.BlockAt(pos)
	if next.IsAir() {
		delete(g.blocks, pos)
	} else {
		g.blocks[pos] = next
	}
	return prior, nil
}

// Fill writes the state across the inclusive region spanned by the two
// corners and reports how many cells changed. Both corners must lie in
// bounds.
func (g *Grid) Fill(a, b BlockPos, state BlockState) (int, error) {
	min, max := Span(a, b)
	if !g.InBounds(min) || !g.InBounds(max) {
		return 0, fmt.Errorf("%w: fill %v..%v", ErrOutOfBounds, min, max)
	}
	changed := 0
	for pos := range Positions(min, max) {
		prior, err := g.SetBlock(pos, state)
		if err != nil {
			return changed, err
		}
		if prior != state {
			changed++
		}
	}
	return changed, nil
}

// Blocks returns a copy of every explicitly stored cell.
func (g *Grid) Blocks() map[BlockPos]BlockState {
	if g == nil {
		return nil
	}
	out := make(map[BlockPos]BlockState, len(g.blocks))
	for pos, state := range g.blocks {
		out[pos] = state
	}
	return out
}

// Count reports how many cells hold a non-air block.
func (g *Grid) Count() int {
	if g == nil {
		return 0
	}
	return len(g.blocks)
}
