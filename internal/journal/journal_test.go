package journal

import (
	"testing"
	"time"

	"quarry/engine/internal/world"
)

func TestJournalPatchBuffersClone(t *testing.T) {
	j := New(0, 0)

	original := Patch{
		Kind: PatchBlockSet,
		Pos:  world.BlockPos{X: 1, Y: 2, Z: 3},
		Tick: 9,
		Payload: BlockSetPayload{
			Prior: world.BlockState{Type: world.BlockStone},
			Next:  world.BlockState{Type: world.BlockGravel},
		},
	}
	j.AppendPatch(original)

	snapshot := j.SnapshotPatches()
	if len(snapshot) != 1 {
		t.Fatalf("expected snapshot to contain 1 patch, got %d", len(snapshot))
	}
	snapshot[0].Pos = world.BlockPos{X: 9, Y: 9, Z: 9}
	snapshot[0].Kind = PatchBlockBroken

	drained := j.DrainPatches()
	if len(drained) != 1 {
		t.Fatalf("expected drain to return 1 patch, got %d", len(drained))
	}
	if drained[0].Pos != original.Pos {
		t.Fatalf("expected drain to preserve position %v, got %v", original.Pos, drained[0].Pos)
	}
	if drained[0].Kind != original.Kind {
		t.Fatalf("expected drain to preserve kind %q, got %q", original.Kind, drained[0].Kind)
	}

	drained[0].Tick = 77
	j.RestorePatches(drained)
	drained[0].Tick = 88

	restored := j.SnapshotPatches()
	if len(restored) != 1 {
		t.Fatalf("expected restored snapshot to contain 1 patch, got %d", len(restored))
	}
	if restored[0].Tick != 77 {
		t.Fatalf("expected restore to capture tick 77, got %d", restored[0].Tick)
	}

	if cleared := j.DrainPatches(); len(cleared) != 1 {
		t.Fatalf("expected drain to return the restored patch, got %d", len(cleared))
	}
	if again := j.DrainPatches(); len(again) != 0 {
		t.Fatalf("expected journal to be empty after drain, got %d patches", len(again))
	}
}

func TestJournalRestorePrependsPatches(t *testing.T) {
	j := New(0, 0)
	first := world.BlockPos{X: 1, Y: 0, Z: 0}
	second := world.BlockPos{X: 2, Y: 0, Z: 0}

	j.AppendPatch(Patch{Kind: PatchBlockSet, Pos: first})
	drained := j.DrainPatches()

	j.AppendPatch(Patch{Kind: PatchBlockSet, Pos: second})
	j.RestorePatches(drained)

	patches := j.DrainPatches()
	if len(patches) != 2 {
		t.Fatalf("expected 2 patches after restore, got %d", len(patches))
	}
	if patches[0].Pos != first || patches[1].Pos != second {
		t.Fatalf("expected restored patches to drain first, got %v then %v", patches[0].Pos, patches[1].Pos)
	}
}

func TestJournalPurgePos(t *testing.T) {
	j := New(0, 0)
	kept := world.BlockPos{X: 5, Y: 1, Z: 5}
	purged := world.BlockPos{X: 6, Y: 1, Z: 6}

	j.AppendPatch(Patch{Kind: PatchBlockSet, Pos: kept})
	j.AppendPatch(Patch{Kind: PatchBlockSet, Pos: purged})
	j.AppendPatch(Patch{Kind: PatchDropSpawned, Pos: purged})

	j.PurgePos(purged)

	patches := j.DrainPatches()
	if len(patches) != 1 {
		t.Fatalf("expected purge to leave 1 patch, got %d", len(patches))
	}
	if patches[0].Pos != kept {
		t.Fatalf("expected surviving patch at %v, got %v", kept, patches[0].Pos)
	}

	j.PurgePos(purged)
	if got := j.SnapshotPatches(); got != nil {
		t.Fatalf("expected purge of empty journal to be a no-op, got %v", got)
	}
}

func TestJournalKeyframeHintSignals(t *testing.T) {
	j := New(0, 0)
	pos := world.BlockPos{X: 3, Y: 2, Z: 1}

	if signal, ok := j.ConsumeKeyframeHint(); ok || signal.Reverts != 0 || signal.TotalPatches != 0 || len(signal.Reasons) != 0 {
		t.Fatalf("expected no hint before churn, got %+v", signal)
	}

	j.AppendPatch(Patch{Kind: PatchBlockSet, Pos: world.BlockPos{X: 1, Y: 1, Z: 1}})
	if _, ok := j.ConsumeKeyframeHint(); ok {
		t.Fatalf("expected no hint from committed writes alone")
	}

	j.AppendPatch(Patch{Kind: PatchBlockReverted, Pos: pos})

	signal, ok := j.ConsumeKeyframeHint()
	if !ok {
		t.Fatalf("expected hint after rollback churn")
	}
	if signal.Reverts != 1 {
		t.Fatalf("expected 1 revert, got %d", signal.Reverts)
	}
	if signal.TotalPatches != 2 {
		t.Fatalf("expected 2 total patches, got %d", signal.TotalPatches)
	}
	if len(signal.Reasons) != 1 || signal.Reasons[0].Kind != string(PatchBlockReverted) || signal.Reasons[0].Pos != pos {
		t.Fatalf("unexpected hint reasons: %+v", signal.Reasons)
	}
	if signal.Summary() == "" {
		t.Fatalf("expected non-empty hint summary")
	}

	if _, ok := j.ConsumeKeyframeHint(); ok {
		t.Fatalf("expected hint to reset after consumption")
	}

	for i := 0; i < 20; i++ {
		j.AppendPatch(Patch{Kind: PatchBlockSet, Pos: world.BlockPos{X: i, Y: 0, Z: 0}})
	}
	j.AppendPatch(Patch{Kind: PatchBlockReverted, Pos: pos})
	if _, ok := j.ConsumeKeyframeHint(); ok {
		t.Fatalf("expected no hint while reverts stay under the churn threshold")
	}
}

func TestJournalKeyframeRetentionByCount(t *testing.T) {
	j := New(2, 0)
	telemetry := &recordingTelemetry{}
	j.AttachTelemetry(telemetry)

	for seq := uint64(1); seq <= 3; seq++ {
		result := j.RecordKeyframe(Keyframe{Sequence: seq, Tick: seq})
		if seq < 3 {
			if result.Size != int(seq) || len(result.Evicted) != 0 {
				t.Fatalf("expected keyframe %d retained, got %+v", seq, result)
			}
			continue
		}
		if result.Size != 2 {
			t.Fatalf("expected journal to retain 2 frames, got %d", result.Size)
		}
		if len(result.Evicted) != 1 {
			t.Fatalf("expected single eviction on overflow, got %d", len(result.Evicted))
		}
		if eviction := result.Evicted[0]; eviction.Sequence != 1 || eviction.Reason != "count" {
			t.Fatalf("unexpected eviction: %+v", eviction)
		}
	}

	if !telemetry.recorded(metricKeyframeCount) {
		t.Fatalf("expected telemetry to record the count eviction")
	}

	if size, oldest, newest := j.KeyframeWindow(); size != 2 || oldest != 2 || newest != 3 {
		t.Fatalf("expected window size=2 oldest=2 newest=3, got size=%d oldest=%d newest=%d", size, oldest, newest)
	}
	if _, ok := j.KeyframeBySequence(1); ok {
		t.Fatalf("expected evicted keyframe to be gone")
	}
	if frame, ok := j.KeyframeBySequence(3); !ok || frame.Tick != 3 {
		t.Fatalf("expected keyframe 3 retained, got %+v ok=%v", frame, ok)
	}
	if frames := j.Keyframes(); len(frames) != 2 || frames[0].Sequence != 2 {
		t.Fatalf("expected chronological keyframes, got %+v", frames)
	}
}

func TestJournalKeyframeRetentionByAge(t *testing.T) {
	j := New(4, time.Millisecond)
	telemetry := &recordingTelemetry{}
	j.AttachTelemetry(telemetry)

	first := j.RecordKeyframe(Keyframe{Sequence: 1, Tick: 1})
	if first.Size != 1 || len(first.Evicted) != 0 {
		t.Fatalf("expected first keyframe retained, got %+v", first)
	}

	time.Sleep(2 * time.Millisecond)

	second := j.RecordKeyframe(Keyframe{Sequence: 2, Tick: 2})
	if len(second.Evicted) != 1 {
		t.Fatalf("expected expired keyframe eviction, got %d", len(second.Evicted))
	}
	if eviction := second.Evicted[0]; eviction.Sequence != 1 || eviction.Reason != "expired" {
		t.Fatalf("unexpected eviction: %+v", eviction)
	}
	if !telemetry.recorded(metricKeyframeExpired) {
		t.Fatalf("expected telemetry to record the expiry eviction")
	}
}

func TestJournalKeyframeZeroCapacity(t *testing.T) {
	j := New(0, 0)

	result := j.RecordKeyframe(Keyframe{Sequence: 1, Tick: 1})
	if result.Size != 0 || len(result.Evicted) != 0 {
		t.Fatalf("expected zero-capacity journal to store nothing, got %+v", result)
	}
	if size, _, _ := j.KeyframeWindow(); size != 0 {
		t.Fatalf("expected empty window, got size %d", size)
	}
}

func TestJournalRecordKeyframeCopiesBlocks(t *testing.T) {
	j := New(4, 0)
	pos := world.BlockPos{X: 1, Y: 2, Z: 3}
	blocks := map[world.BlockPos]world.BlockState{
		pos: {Type: world.BlockStone},
	}

	j.RecordKeyframe(Keyframe{
		Tick:     256,
		Sequence: 8001,
		Blocks:   blocks,
		Config:   world.Config{Seed: "baseline"},
	})

	blocks[pos] = world.BlockState{Type: world.BlockGravel}

	recorded, ok := j.KeyframeBySequence(8001)
	if !ok {
		t.Fatalf("expected journal to return keyframe 8001")
	}
	if got := recorded.Blocks[pos].Type; got != world.BlockStone {
		t.Fatalf("expected recorded blocks to be cloned, got %q", got)
	}
	if recorded.Config.Seed != "baseline" {
		t.Fatalf("expected recorded config preserved, got %q", recorded.Config.Seed)
	}

	recorded.Blocks[pos] = world.BlockState{Type: world.BlockOre}

	again, ok := j.KeyframeBySequence(8001)
	if !ok {
		t.Fatalf("expected journal to return keyframe 8001 on second lookup")
	}
	if got := again.Blocks[pos].Type; got != world.BlockStone {
		t.Fatalf("expected lookup to return a fresh copy, got %q", got)
	}
}

type recordingTelemetry struct {
	metrics []string
}

func (t *recordingTelemetry) RecordJournalDrop(metric string) {
	t.metrics = append(t.metrics, metric)
}

func (t *recordingTelemetry) recorded(metric string) bool {
	for _, candidate := range t.metrics {
		if candidate == metric {
			return true
		}
	}
	return false
}
