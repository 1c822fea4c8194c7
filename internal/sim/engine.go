package sim

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	Apply([]Command) error
	Step()
	Snapshot() Snapshot
	DrainPatches() []Patch
	SnapshotPatches() []Patch
	RestorePatches([]Patch)
	ConsumeKeyframeHint() (KeyframeSignal, bool)
	KeyframeBySequence(uint64) (Keyframe, bool)
	KeyframeWindow() (int, uint64, uint64)
}

// EngineCore is the stepping surface the loop drives. It widens Engine with
// dependency introspection and explicit keyframe recording.
type EngineCore interface {
	Engine
	Deps() Deps
	RecordKeyframe(Keyframe) KeyframeRecordResult
}
