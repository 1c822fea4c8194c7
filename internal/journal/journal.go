package journal

import (
	"sync"
	"time"

	"quarry/engine/internal/world"
)

// Telemetry captures the metrics adapter used by the journal to report
// dropped keyframes.
type Telemetry interface {
	RecordJournalDrop(metric string)
}

// PatchKind identifies the type of diff entry.
type PatchKind string

const (
	// PatchBlockSet records a block write committed by a transaction.
	PatchBlockSet PatchKind = "block_set"
	// PatchBlockBroken records a block mined out into drops.
	PatchBlockBroken PatchKind = "block_broken"
	// PatchBlockReverted records a block restored to its prior state when a
	// transaction was rolled back.
	PatchBlockReverted PatchKind = "block_reverted"
	// PatchDropSpawned records an item stack spawned by a broken block.
	PatchDropSpawned PatchKind = "drop_spawned"
)

// Patch represents one committed change that consumers apply to their copy
// of the grid.
type Patch struct {
	Kind    PatchKind      `json:"kind"`
	Pos     world.BlockPos `json:"pos"`
	Tick    uint64         `json:"tick"`
	Payload any            `json:"payload,omitempty"`
}

// BlockSetPayload carries the states around a committed block write.
type BlockSetPayload struct {
	Prior world.BlockState `json:"prior"`
	Next  world.BlockState `json:"next"`
}

// BlockBrokenPayload carries the state a broken block held and the drops it
// produced.
type BlockBrokenPayload struct {
	Prior world.BlockState  `json:"prior"`
	Drops []world.ItemStack `json:"drops,omitempty"`
}

// BlockRevertedPayload carries the states around a rolled-back write.
type BlockRevertedPayload struct {
	Restored world.BlockState `json:"restored"`
	Undone   world.BlockState `json:"undone"`
}

// DropSpawnedPayload carries the stack spawned at a position.
type DropSpawnedPayload struct {
	Stack world.ItemStack `json:"stack"`
}

// Journal accumulates patches generated during a tick and keeps a rolling
// buffer of recent keyframes so consumers that fall behind can rehydrate
// from a snapshot instead of replaying every patch.
type Journal struct {
	mu        sync.RWMutex
	patches   []Patch
	keyframes []Keyframe
	maxFrames int
	maxAge    time.Duration
	telemetry Telemetry
	hints     *Policy
}

// New constructs a journal with storage for the configured number of
// keyframes and retention window.
func New(keyframeCapacity int, maxAge time.Duration) Journal {
	if keyframeCapacity < 0 {
		keyframeCapacity = 0
	}
	if maxAge < 0 {
		maxAge = 0
	}
	return Journal{
		patches:   make([]Patch, 0),
		keyframes: make([]Keyframe, 0, keyframeCapacity),
		maxFrames: keyframeCapacity,
		maxAge:    maxAge,
		hints:     NewPolicy(),
	}
}

// AppendPatch records a patch for the current tick.
func (j *Journal) AppendPatch(p Patch) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.patches = append(j.patches, p)
	if j.hints != nil {
		j.hints.NotePatch()
		if p.Kind == PatchBlockReverted {
			j.hints.NoteRevert(string(p.Kind), p.Pos)
		}
	}
}

// PurgePos drops all staged patches that reference the provided position. It
// keeps the journal consistent when a revert makes earlier staged writes
// moot.
func (j *Journal) PurgePos(pos world.BlockPos) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.patches) == 0 {
		return
	}
	filtered := j.patches[:0]
	for _, patch := range j.patches {
		if patch.Pos == pos {
			continue
		}
		filtered = append(filtered, patch)
	}
	if len(filtered) == len(j.patches) {
		return
	}
	j.patches = filtered
}

// DrainPatches returns all staged patches and clears the in-memory slice.
func (j *Journal) DrainPatches() []Patch {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.patches) == 0 {
		return nil
	}
	drained := make([]Patch, len(j.patches))
	copy(drained, j.patches)
	j.patches = j.patches[:0]
	return drained
}

// SnapshotPatches returns a copy of the staged patches without clearing the
// journal.
func (j *Journal) SnapshotPatches() []Patch {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.patches) == 0 {
		return nil
	}
	snapshot := make([]Patch, len(j.patches))
	copy(snapshot, j.patches)
	return snapshot
}

// RestorePatches prepends the provided patches back into the journal. It is
// used when a caller drains the journal but later needs to roll the
// operation back (for example, if the downstream consumer fails and the
// batch must not be lost).
func (j *Journal) RestorePatches(p []Patch) {
	if len(p) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	restored := make([]Patch, 0, len(p)+len(j.patches))
	restored = append(restored, p...)
	restored = append(restored, j.patches...)
	j.patches = restored
}

// ConsumeKeyframeHint reports whether the journal observed enough rollback
// churn that consumers should be offered a fresh keyframe instead of the
// patch stream. Counters reset after each consumption so the caller can
// re-evaluate on subsequent ticks.
func (j *Journal) ConsumeKeyframeHint() (KeyframeSignal, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.hints == nil {
		return KeyframeSignal{}, false
	}
	return j.hints.Consume()
}

// RecordKeyframe stores a keyframe in the buffer enforcing retention limits
// by count and age. Frames without a recording time are stamped with the
// wall clock; callers with an injected clock pass their own.
func (j *Journal) RecordKeyframe(frame Keyframe) KeyframeRecordResult {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.maxFrames == 0 {
		j.keyframes = j.keyframes[:0]
		return KeyframeRecordResult{}
	}

	if frame.RecordedAt.IsZero() {
		frame.RecordedAt = time.Now()
	}
	frame.Blocks = CloneBlocks(frame.Blocks)
	j.keyframes = append(j.keyframes, frame)

	cutoff := time.Time{}
	if j.maxAge > 0 {
		cutoff = frame.RecordedAt.Add(-j.maxAge)
	}

	evicted := make([]KeyframeEviction, 0)
	if !cutoff.IsZero() {
		idx := 0
		for idx < len(j.keyframes) {
			if !j.keyframes[idx].RecordedAt.Before(cutoff) {
				break
			}
			evicted = append(evicted, KeyframeEviction{
				Sequence: j.keyframes[idx].Sequence,
				Tick:     j.keyframes[idx].Tick,
				Reason:   "expired",
			})
			j.recordJournalDropLocked(metricKeyframeExpired)
			idx++
		}
		if idx > 0 {
			copy(j.keyframes, j.keyframes[idx:])
			j.keyframes = j.keyframes[:len(j.keyframes)-idx]
		}
	}

	if j.maxFrames > 0 && len(j.keyframes) > j.maxFrames {
		overflow := len(j.keyframes) - j.maxFrames
		for i := 0; i < overflow; i++ {
			frame := j.keyframes[i]
			evicted = append(evicted, KeyframeEviction{
				Sequence: frame.Sequence,
				Tick:     frame.Tick,
				Reason:   "count",
			})
			j.recordJournalDropLocked(metricKeyframeCount)
		}
		copy(j.keyframes, j.keyframes[overflow:])
		j.keyframes = j.keyframes[:len(j.keyframes)-overflow]
	}

	size := len(j.keyframes)
	result := KeyframeRecordResult{Size: size}
	if size > 0 {
		result.OldestSequence = j.keyframes[0].Sequence
		result.NewestSequence = j.keyframes[size-1].Sequence
	}
	result.Evicted = evicted
	return result
}

// Keyframes exposes the current keyframe buffer contents in chronological
// order. Callers receive a copy to avoid holding references into the buffer.
func (j *Journal) Keyframes() []Keyframe {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.keyframes) == 0 {
		return nil
	}
	frames := make([]Keyframe, len(j.keyframes))
	copy(frames, j.keyframes)
	for i := range frames {
		frames[i].Blocks = CloneBlocks(frames[i].Blocks)
	}
	return frames
}

// KeyframeBySequence returns the keyframe matching the provided sequence.
func (j *Journal) KeyframeBySequence(sequence uint64) (Keyframe, bool) {
	if sequence == 0 {
		return Keyframe{}, false
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	for _, frame := range j.keyframes {
		if frame.Sequence == sequence {
			frame.Blocks = CloneBlocks(frame.Blocks)
			return frame, true
		}
	}
	return Keyframe{}, false
}

// KeyframeWindow reports the current retention window.
func (j *Journal) KeyframeWindow() (size int, oldest, newest uint64) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	size = len(j.keyframes)
	if size == 0 {
		return size, 0, 0
	}
	oldest = j.keyframes[0].Sequence
	newest = j.keyframes[size-1].Sequence
	return size, oldest, newest
}

const (
	metricKeyframeExpired = "journal_keyframe_expired"
	metricKeyframeCount   = "journal_keyframe_count"
)

func (j *Journal) recordJournalDropLocked(metric string) {
	if j.telemetry == nil || metric == "" {
		return
	}
	j.telemetry.RecordJournalDrop(metric)
}

func (j *Journal) AttachTelemetry(t Telemetry) {
	j.mu.Lock()
	j.telemetry = t
	j.mu.Unlock()
}

// CloneBlocks returns a defensive copy of a keyframe block map.
func CloneBlocks(src map[world.BlockPos]world.BlockState) map[world.BlockPos]world.BlockState {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[world.BlockPos]world.BlockState, len(src))
	for pos, state := range src {
		dst[pos] = state
	}
	return dst
}

// Keyframe captures a full snapshot of the grid. Patches drained after the
// keyframe's tick replay on top of it.
type Keyframe struct {
	Tick       uint64
	Sequence   uint64
	Blocks     map[world.BlockPos]world.BlockState
	Config     world.Config
	RecordedAt time.Time
}

type KeyframeEviction struct {
	Sequence uint64
	Tick     uint64
	Reason   string
}

type KeyframeRecordResult struct {
	Size           int
	OldestSequence uint64
	NewestSequence uint64
	Evicted        []KeyframeEviction
}
