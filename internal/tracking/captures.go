package tracking

import (
	"quarry/engine/internal/capture"
	"quarry/engine/internal/world"
)

// BlockCaptures buffers block snapshots keyed by position.
type BlockCaptures = capture.Buffer[world.BlockPos, world.BlockSnapshot]

// DropCaptures buffers item stacks spawned by block breaks, keyed by the
// position that produced them.
type DropCaptures = capture.Buffer[world.BlockPos, world.ItemStack]

// NewBlockCaptures constructs an empty block capture buffer.
func NewBlockCaptures() *BlockCaptures {
	return capture.NewBuffer[world.BlockPos, world.BlockSnapshot]()
}

// NewDropCaptures constructs an empty drop capture buffer.
func NewDropCaptures() *DropCaptures {
	return capture.NewBuffer[world.BlockPos, world.ItemStack]()
}
