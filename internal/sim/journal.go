package sim

import "quarry/engine/internal/journal"

// The journal package owns the patch and keyframe representations; these
// aliases keep them visible on the engine surface without callers importing
// two packages.
type (
	Patch                = journal.Patch
	PatchKind            = journal.PatchKind
	BlockSetPayload      = journal.BlockSetPayload
	BlockBrokenPayload   = journal.BlockBrokenPayload
	BlockRevertedPayload = journal.BlockRevertedPayload
	DropSpawnedPayload   = journal.DropSpawnedPayload
	Keyframe             = journal.Keyframe
	KeyframeEviction     = journal.KeyframeEviction
	KeyframeRecordResult = journal.KeyframeRecordResult
	KeyframeSignal       = journal.KeyframeSignal
)

const (
	PatchBlockSet      = journal.PatchBlockSet
	PatchBlockBroken   = journal.PatchBlockBroken
	PatchBlockReverted = journal.PatchBlockReverted
	PatchDropSpawned   = journal.PatchDropSpawned
)
