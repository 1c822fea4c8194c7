// Package typed re-exports the journal's patch vocabulary for replay
// consumers. Importing it instead of the engine package keeps view-rebuild
// code off the simulation surface while sharing type identity with the
// patches the engine emits.
package typed

import "quarry/engine/internal/journal"

type PatchKind = journal.PatchKind

const (
	PatchBlockSet      = journal.PatchBlockSet
	PatchBlockBroken   = journal.PatchBlockBroken
	PatchBlockReverted = journal.PatchBlockReverted
	PatchDropSpawned   = journal.PatchDropSpawned
)

type Patch = journal.Patch

type BlockSetPayload = journal.BlockSetPayload

type BlockBrokenPayload = journal.BlockBrokenPayload

type BlockRevertedPayload = journal.BlockRevertedPayload

type DropSpawnedPayload = journal.DropSpawnedPayload

type Keyframe = journal.Keyframe
