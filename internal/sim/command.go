package sim

import (
	"quarry/engine/internal/tracking"
	"quarry/engine/internal/world"
)

// CommandKind enumerates the supported world mutation commands.
type CommandKind string

const (
	// CommandPlace writes one block state at Pos.
	CommandPlace CommandKind = "place"
	// CommandBreak clears the block at Pos and spawns its drops.
	CommandBreak CommandKind = "break"
	// CommandFill writes one block state across the region spanned by Pos
	// and To.
	CommandFill CommandKind = "fill"
	// CommandBlast clears every block within Radius of Pos. Blasts vaporize
	// their targets, so they spawn no drops.
	CommandBlast CommandKind = "blast"
)

// Command represents a world mutation staged for processing on the next tick.
// Pos anchors the mutation, To bounds a fill region, Block carries the state
// to write, and Radius sizes a blast.
type Command struct {
	Kind   CommandKind     `json:"kind"`
	Actor  string          `json:"actor,omitempty"`
	Pos    world.BlockPos  `json:"pos"`
	To     world.BlockPos  `json:"to"`
	Block  world.BlockType `json:"block,omitempty"`
	Radius int             `json:"radius,omitempty"`
	Tick   uint64          `json:"tick,omitempty"`
}

// Cause describes the command for transaction bookkeeping.
func (c Command) Cause() tracking.Cause {
	return tracking.Cause{Actor: c.Actor, Kind: string(c.Kind)}
}
