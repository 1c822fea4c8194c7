package patches

import (
	"fmt"

	"quarry/engine/internal/sim/patches/typed"
	"quarry/engine/internal/world"
)

// View mirrors the world state a consumer rebuilds by replaying the patch
// stream: the sparse block map plus the loot spawned along the way. Air cells
// are never stored, matching the grid's own convention.
type View struct {
	Blocks map[world.BlockPos]world.BlockState
	Loot   map[world.BlockPos][]world.ItemStack
}

// Clone returns a deep copy of the view to avoid shared map memory.
func (view View) Clone() View {
	cloned := View{
		Blocks: make(map[world.BlockPos]world.BlockState, len(view.Blocks)),
		Loot:   make(map[world.BlockPos][]world.ItemStack, len(view.Loot)),
	}
	for pos, state := range view.Blocks {
		cloned.Blocks[pos] = state
	}
	for pos, stacks := range view.Loot {
		cloned.Loot[pos] = append([]world.ItemStack(nil), stacks...)
	}
	return cloned
}

// FromKeyframe seeds a view from a journal keyframe.
func FromKeyframe(frame typed.Keyframe) View {
	view := View{
		Blocks: make(map[world.BlockPos]world.BlockState, len(frame.Blocks)),
		Loot:   make(map[world.BlockPos][]world.ItemStack),
	}
	for pos, state := range frame.Blocks {
		if state.IsAir() {
			continue
		}
		view.Blocks[pos] = state
	}
	return view
}

// Apply folds the patch stream onto the provided base view and returns the
// rebuilt state. The base is never mutated.
//
// Loot is accumulated from drop_spawned patches only. A committed break is
// always paired with its eager drop patches in the same drain, and a reverted
// break has them purged, so the broken patch's own drop list is a description
// of the break rather than additional loot.
func Apply(base View, patches []typed.Patch) (View, error) {
	next := base.Clone()

	for _, patch := range patches {
		switch patch.Kind {
		case typed.PatchBlockSet:
			payload, ok := payloadAsBlockSet(patch.Payload)
			if !ok {
				return View{}, fmt.Errorf("apply patches: unexpected payload %T for %q", patch.Payload, patch.Kind)
			}
			next.setBlock(patch.Pos, payload.Next)
		case typed.PatchBlockBroken:
			if _, ok := payloadAsBlockBroken(patch.Payload); !ok {
				return View{}, fmt.Errorf("apply patches: unexpected payload %T for %q", patch.Payload, patch.Kind)
			}
			next.setBlock(patch.Pos, world.Air)
		case typed.PatchBlockReverted:
			payload, ok := payloadAsBlockReverted(patch.Payload)
			if !ok {
				return View{}, fmt.Errorf("apply patches: unexpected payload %T for %q", patch.Payload, patch.Kind)
			}
			next.setBlock(patch.Pos, payload.Restored)
		case typed.PatchDropSpawned:
			payload, ok := payloadAsDropSpawned(patch.Payload)
			if !ok {
				return View{}, fmt.Errorf("apply patches: unexpected payload %T for %q", patch.Payload, patch.Kind)
			}
			next.Loot[patch.Pos] = append(next.Loot[patch.Pos], payload.Stack)
		default:
			return View{}, fmt.Errorf("apply patches: unsupported patch kind %q", patch.Kind)
		}
	}

	return next, nil
}

func (view *View) setBlock(pos world.BlockPos, state world.BlockState) {
	if state.IsAir() {
		delete(view.Blocks, pos)
		return
	}
	view.Blocks[pos] = state
}

func payloadAsBlockSet(value any) (typed.BlockSetPayload, bool) {
	switch v := value.(type) {
	case typed.BlockSetPayload:
		return v, true
	case *typed.BlockSetPayload:
		if v == nil {
			return typed.BlockSetPayload{}, false
		}
		return *v, true
	default:
		return typed.BlockSetPayload{}, false
	}
}

func payloadAsBlockBroken(value any) (typed.BlockBrokenPayload, bool) {
	switch v := value.(type) {
	case typed.BlockBrokenPayload:
		return v, true
	case *typed.BlockBrokenPayload:
		if v == nil {
			return typed.BlockBrokenPayload{}, false
		}
		return *v, true
	default:
		return typed.BlockBrokenPayload{}, false
	}
}

func payloadAsBlockReverted(value any) (typed.BlockRevertedPayload, bool) {
	switch v := value.(type) {
	case typed.BlockRevertedPayload:
		return v, true
	case *typed.BlockRevertedPayload:
		if v == nil {
			return typed.BlockRevertedPayload{}, false
		}
		return *v, true
	default:
		return typed.BlockRevertedPayload{}, false
	}
}

func payloadAsDropSpawned(value any) (typed.DropSpawnedPayload, bool) {
	switch v := value.(type) {
	case typed.DropSpawnedPayload:
		return v, true
	case *typed.DropSpawnedPayload:
		if v == nil {
			return typed.DropSpawnedPayload{}, false
		}
		return *v, true
	default:
		return typed.DropSpawnedPayload{}, false
	}
}
