package sim

import (
	"sort"

	"quarry/engine/internal/world"
)

// BlockCell pairs a position with its stored state.
type BlockCell struct {
	Pos   world.BlockPos   `json:"pos"`
	State world.BlockState `json:"state"`
}

// Snapshot captures the state exposed to non-simulation callers. Blocks are
// sorted by position so equal grids produce equal snapshots.
type Snapshot struct {
	Tick   uint64       `json:"tick"`
	Blocks []BlockCell  `json:"blocks,omitempty"`
	Config world.Config `json:"config"`
}

func snapshotBlocks(cells map[world.BlockPos]world.BlockState) []BlockCell {
	if len(cells) == 0 {
		return nil
	}
	blocks := make([]BlockCell, 0, len(cells))
	for pos, state := range cells {
		blocks = append(blocks, BlockCell{Pos: pos, State: state})
	}
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i].Pos, blocks[j].Pos
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return blocks
}
